// Command aggregate_audit lists service methods that write aggregate-owned
// tables straight through a repo instead of calling the owning aggregate.
//
//	go run ./scripts [-json] [-fail] [root]
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
)

// dependency is a service struct field holding a repo or an aggregate.
type dependency struct {
	Service string `json:"service"`
	Field   string `json:"field"`
	Type    string `json:"type"`
	Domain  string `json:"domain"`
	// Owned repos belong to an aggregate and must not be written directly.
	Owned     bool `json:"owned"`
	aggregate bool
}

type call struct {
	Field  string `json:"field"`
	Method string `json:"method"`
	Line   int    `json:"line"`
}

type finding struct {
	Service         string `json:"service"`
	Method          string `json:"method"`
	File            string `json:"file"`
	DirectWrites    []call `json:"direct_writes,omitempty"`
	AggregateWrites []call `json:"aggregate_writes,omitempty"`
}

type domainTally struct {
	Direct    int `json:"direct"`
	Aggregate int `json:"aggregate"`
}

type auditReport struct {
	DirectWrites    int                     `json:"direct_writes"`
	AggregateWrites int                     `json:"aggregate_writes"`
	ByDomain        map[string]*domainTally `json:"by_domain"`
	Findings        []finding               `json:"findings"`
	OwnedRepos      []dependency            `json:"owned_repos"`
}

// Residual lists the findings that bypass an aggregate.
func (r auditReport) Residual() []finding {
	var out []finding
	for _, f := range r.Findings {
		if len(f.DirectWrites) > 0 {
			out = append(out, f)
		}
	}
	return out
}

var repoWritePrefixes = []string{
	"Create", "Update", "Upsert", "Replace", "SoftDelete", "Set", "Increment", "Ensure",
}

var aggregateWrites = map[string]bool{
	"Start": true, "SaveStep": true, "Regress": true, "MergeAgentContext": true,
	"AppendConversation": true, "Complete": true, "Update": true, "SetLock": true, "SoftDelete": true,
}

func main() {
	asJSON := flag.Bool("json", false, "print the full report as JSON")
	fail := flag.Bool("fail", false, "exit 2 when a service writes an owned repo directly")
	flag.Parse()
	root := "."
	if flag.NArg() > 0 {
		root = flag.Arg(0)
	}

	report, err := audit(root)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		err = enc.Encode(report)
	} else {
		err = printSummary(os.Stdout, report)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *fail && report.DirectWrites > 0 {
		os.Exit(2)
	}
}

func audit(root string) (auditReport, error) {
	dir := filepath.Join(root, "internal", "services")
	paths, err := filepath.Glob(filepath.Join(dir, "*.go"))
	if err != nil {
		return auditReport{}, err
	}
	sort.Strings(paths)

	fset := token.NewFileSet()
	var files []*ast.File
	var names []string
	for _, p := range paths {
		if strings.HasSuffix(p, "_test.go") {
			continue
		}
		f, err := parser.ParseFile(fset, p, nil, 0)
		if err != nil {
			return auditReport{}, fmt.Errorf("parse %s: %w", p, err)
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			rel = p
		}
		files = append(files, f)
		names = append(names, filepath.ToSlash(rel))
	}
	if len(files) == 0 {
		return auditReport{}, fmt.Errorf("no service sources under %s", dir)
	}

	deps := map[string]map[string]dependency{}
	for _, f := range files {
		collectDependencies(f, deps)
	}

	report := auditReport{ByDomain: map[string]*domainTally{}}
	for i, f := range files {
		for _, fd := range methodsOf(f) {
			if fnd, ok := inspectMethod(fset, fd, names[i], deps); ok {
				report.add(fnd, deps[fnd.Service])
			}
		}
	}
	for _, byField := range deps {
		for _, d := range byField {
			if d.Owned {
				report.OwnedRepos = append(report.OwnedRepos, d)
			}
		}
	}
	sort.Slice(report.OwnedRepos, func(i, j int) bool {
		a, b := report.OwnedRepos[i], report.OwnedRepos[j]
		return a.Service+"."+a.Field < b.Service+"."+b.Field
	})
	return report, nil
}

func (r *auditReport) add(f finding, deps map[string]dependency) {
	tally := func(field string) *domainTally {
		d := deps[field].Domain
		if r.ByDomain[d] == nil {
			r.ByDomain[d] = &domainTally{}
		}
		return r.ByDomain[d]
	}
	for _, c := range f.DirectWrites {
		r.DirectWrites++
		tally(c.Field).Direct++
	}
	for _, c := range f.AggregateWrites {
		r.AggregateWrites++
		tally(c.Field).Aggregate++
	}
	r.Findings = append(r.Findings, f)
}

// collectDependencies records struct fields typed repos.X or domainagg.X.
func collectDependencies(f *ast.File, out map[string]map[string]dependency) {
	ast.Inspect(f, func(n ast.Node) bool {
		ts, ok := n.(*ast.TypeSpec)
		if !ok {
			return true
		}
		st, ok := ts.Type.(*ast.StructType)
		if !ok {
			return false
		}
		for _, field := range st.Fields.List {
			sel, ok := field.Type.(*ast.SelectorExpr)
			if !ok || len(field.Names) == 0 {
				continue
			}
			pkg, ok := sel.X.(*ast.Ident)
			if !ok || (pkg.Name != "repos" && pkg.Name != "domainagg") {
				continue
			}
			domain, owned := domainForRepoType(sel.Sel.Name)
			d := dependency{
				Service:   ts.Name.Name,
				Field:     field.Names[0].Name,
				Type:      pkg.Name + "." + sel.Sel.Name,
				Domain:    domain,
				Owned:     owned && pkg.Name == "repos",
				aggregate: pkg.Name == "domainagg",
			}
			if d.aggregate {
				d.Domain = strings.TrimSuffix(sel.Sel.Name, "Aggregate")
			}
			if out[d.Service] == nil {
				out[d.Service] = map[string]dependency{}
			}
			out[d.Service][d.Field] = d
		}
		return false
	})
}

func methodsOf(f *ast.File) []*ast.FuncDecl {
	var out []*ast.FuncDecl
	for _, decl := range f.Decls {
		if fd, ok := decl.(*ast.FuncDecl); ok && fd.Recv != nil && fd.Body != nil {
			out = append(out, fd)
		}
	}
	return out
}

// inspectMethod finds recv.field.Method(...) calls that write through a
// dependency. ok is false when the method writes nothing.
func inspectMethod(fset *token.FileSet, fd *ast.FuncDecl, file string, deps map[string]map[string]dependency) (finding, bool) {
	recv, service := receiver(fd)
	fields := deps[service]
	if recv == "" || len(fields) == 0 {
		return finding{}, false
	}
	fnd := finding{Service: service, Method: fd.Name.Name, File: file}
	ast.Inspect(fd.Body, func(n ast.Node) bool {
		ce, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		method, ok := ce.Fun.(*ast.SelectorExpr)
		if !ok {
			return true
		}
		holder, ok := method.X.(*ast.SelectorExpr)
		if !ok {
			return true
		}
		if base, ok := holder.X.(*ast.Ident); !ok || base.Name != recv {
			return true
		}
		d, ok := fields[holder.Sel.Name]
		if !ok {
			return true
		}
		c := call{Field: d.Field, Method: method.Sel.Name, Line: fset.Position(ce.Pos()).Line}
		switch {
		case d.aggregate && aggregateWrites[c.Method]:
			fnd.AggregateWrites = append(fnd.AggregateWrites, c)
		case d.Owned && isRepoWrite(c.Method):
			fnd.DirectWrites = append(fnd.DirectWrites, c)
		}
		return true
	})
	return fnd, len(fnd.DirectWrites)+len(fnd.AggregateWrites) > 0
}

func receiver(fd *ast.FuncDecl) (name, typ string) {
	if len(fd.Recv.List) == 0 || len(fd.Recv.List[0].Names) == 0 {
		return "", ""
	}
	r := fd.Recv.List[0]
	expr := r.Type
	if star, ok := expr.(*ast.StarExpr); ok {
		expr = star.X
	}
	id, ok := expr.(*ast.Ident)
	if !ok {
		return "", ""
	}
	return r.Names[0].Name, id.Name
}

func isRepoWrite(method string) bool {
	for _, p := range repoWritePrefixes {
		if strings.HasPrefix(method, p) {
			return true
		}
	}
	return false
}

// domainForRepoType reports the owning domain and whether an aggregate owns
// its writes. Users are single-row updates and stay with the service.
func domainForRepoType(repoType string) (string, bool) {
	rt := strings.TrimSpace(repoType)
	switch {
	case rt == "":
		return "Unknown", false
	case strings.HasPrefix(rt, "Onboarding"):
		return "Onboarding", true
	case strings.HasPrefix(rt, "UserProfile"), strings.HasPrefix(rt, "ProfileVersion"):
		return "Profile", true
	case strings.HasPrefix(rt, "WorkoutPlan"), strings.HasPrefix(rt, "ExerciseLibrary"):
		return "Workout", true
	case strings.HasPrefix(rt, "ConversationMessage"):
		return "Chat", true
	case strings.HasPrefix(rt, "User"):
		return "Account", false
	default:
		return "Other", false
	}
}

func printSummary(w io.Writer, r auditReport) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "direct writes:\t%d\n", r.DirectWrites)
	fmt.Fprintf(tw, "aggregate writes:\t%d\n\n", r.AggregateWrites)

	domains := make([]string, 0, len(r.ByDomain))
	for d := range r.ByDomain {
		domains = append(domains, d)
	}
	sort.Strings(domains)
	fmt.Fprintln(tw, "DOMAIN\tDIRECT\tAGGREGATE")
	for _, d := range domains {
		fmt.Fprintf(tw, "%s\t%d\t%d\n", d, r.ByDomain[d].Direct, r.ByDomain[d].Aggregate)
	}
	if residual := r.Residual(); len(residual) > 0 {
		fmt.Fprintln(tw, "\nRESIDUAL\tFILE\tCALLS")
		for _, f := range residual {
			calls := make([]string, len(f.DirectWrites))
			for i, c := range f.DirectWrites {
				calls[i] = fmt.Sprintf("%s.%s:%d", c.Field, c.Method, c.Line)
			}
			fmt.Fprintf(tw, "%s.%s\t%s\t%s\n", f.Service, f.Method, f.File, strings.Join(calls, ", "))
		}
	}
	return tw.Flush()
}
