package aggregates_test

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/fitcoach-backend/internal/data/aggregates"
	repotest "github.com/yungbote/fitcoach-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/fitcoach-backend/internal/domain/aggregates"
	"github.com/yungbote/fitcoach-backend/internal/domain/onboarding"
	"github.com/yungbote/fitcoach-backend/internal/domain/profile"
	"github.com/yungbote/fitcoach-backend/internal/platform/apierr"
)

func (f fixture) profiles() domainagg.ProfileAggregate {
	return aggregates.NewProfileAggregate(aggregates.ProfileAggregateDeps{
		Base:     f.base,
		Profiles: f.set.Profiles,
		Versions: f.set.Versions,
	})
}

func intPtr(v int) *int { return &v }

func TestProfileUpdateRequiresUnlock(t *testing.T) {
	f := newFixture(t)
	agg := f.profiles()
	u := repotest.SeedUser(t, f.ctx, f.tx, "locked@example.com")
	p := repotest.SeedProfile(t, f.ctx, f.tx, u.ID)

	_, err := agg.Update(f.ctx, domainagg.UpdateProfileInput{
		UserID: u.ID,
		Update: profile.ProfileUpdate{EnergyLevel: intPtr(3)},
	})
	requireCode(t, err, apierr.CodeProfileLocked)
	max, err := f.set.Versions.MaxVersion(f.dbc(), p.ID)
	if err != nil || max != 0 {
		t.Fatalf("no version expected after rejected update: max=%d err=%v", max, err)
	}

	res, err := agg.Update(f.ctx, domainagg.UpdateProfileInput{
		UserID: u.ID,
		Update: profile.ProfileUpdate{EnergyLevel: intPtr(3), Unlock: true, ChangeReason: "felt tired"},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !res.Unlocked || res.VersionNumber != 1 || res.ProfileID != p.ID {
		t.Fatalf("unexpected result: %+v", res)
	}

	full, err := f.set.Profiles.GetFullByUserID(f.dbc(), u.ID)
	if err != nil || full == nil {
		t.Fatalf("GetFullByUserID: %v", err)
	}
	if full.IsLocked {
		t.Fatalf("profile should be unlocked")
	}
	if full.LifestyleBaseline == nil || full.LifestyleBaseline.EnergyLevel != 3 || full.LifestyleBaseline.StressLevel != 4 {
		t.Fatalf("lifestyle: %+v", full.LifestyleBaseline)
	}

	v, err := f.set.Versions.GetByNumber(f.dbc(), p.ID, 1)
	if err != nil || v == nil {
		t.Fatalf("GetByNumber: %v", err)
	}
	if v.ChangeReason != "felt tired" {
		t.Fatalf("change reason: %q", v.ChangeReason)
	}
	var snap profile.ProfileSnapshot
	if err := json.Unmarshal(v.Snapshot, &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if !snap.IsLocked || snap.LifestyleBaseline == nil || snap.LifestyleBaseline.EnergyLevel != 8 {
		t.Fatalf("snapshot should hold the pre-image: %+v", snap.LifestyleBaseline)
	}
}

func TestProfileUpdateReplacesCollectionsAndCreatesSingletons(t *testing.T) {
	f := newFixture(t)
	agg := f.profiles()
	u := repotest.SeedUser(t, f.ctx, f.tx, "collections@example.com")
	p := repotest.SeedProfile(t, f.ctx, f.tx, u.ID)
	if _, err := agg.SetLock(f.ctx, domainagg.SetLockInput{UserID: u.ID, Locked: false}); err != nil {
		t.Fatalf("SetLock: %v", err)
	}

	goals := []onboarding.GoalInput{
		{GoalType: "endurance", Priority: 1},
		{GoalType: "fat_loss", Priority: 2},
	}
	meals := []onboarding.MealSlot{{MealName: "Lunch", ScheduledTime: "12:15"}}
	water := 3000
	res, err := agg.Update(f.ctx, domainagg.UpdateProfileInput{
		UserID: u.ID,
		Update: profile.ProfileUpdate{
			Goals:              &goals,
			MealSchedules:      &meals,
			DailyWaterTargetML: &water,
		},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if res.Unlocked || res.VersionNumber != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}

	full, err := f.set.Profiles.GetFullByUserID(f.dbc(), u.ID)
	if err != nil || full == nil {
		t.Fatalf("GetFullByUserID: %v", err)
	}
	if len(full.Goals) != 2 || full.Goals[0].GoalType != "endurance" {
		t.Fatalf("goals: %+v", full.Goals)
	}
	if len(full.MealSchedules) != 1 || full.MealSchedules[0].ScheduledTime != "12:15:00" {
		t.Fatalf("meals: %+v", full.MealSchedules)
	}
	if full.HydrationPreference == nil || full.HydrationPreference.DailyWaterTargetML != 3000 || full.HydrationPreference.ReminderFrequencyMinutes != 60 {
		t.Fatalf("hydration: %+v", full.HydrationPreference)
	}
	if full.MealPlan == nil || full.MealPlan.DailyCalorieTarget != 2500 {
		t.Fatalf("meal plan should be untouched: %+v", full.MealPlan)
	}

	max, err := f.set.Versions.MaxVersion(f.dbc(), p.ID)
	if err != nil || max != 1 {
		t.Fatalf("max version: want=1 got=%d err=%v", max, err)
	}
}

func TestProfileUpdateValidation(t *testing.T) {
	f := newFixture(t)
	agg := f.profiles()
	u := repotest.SeedUser(t, f.ctx, f.tx, "validation@example.com")
	repotest.SeedProfile(t, f.ctx, f.tx, u.ID)

	badGoals := []onboarding.GoalInput{{GoalType: "flying", Priority: 1}}
	badMeals := []onboarding.MealSlot{{MealName: "Late", ScheduledTime: "25:00"}}
	cases := []struct {
		name   string
		update profile.ProfileUpdate
		field  string
	}{
		{"goal type", profile.ProfileUpdate{Goals: &badGoals, Unlock: true}, ""},
		{"meal time", profile.ProfileUpdate{MealSchedules: &badMeals, Unlock: true}, ""},
		{"stress range", profile.ProfileUpdate{StressLevel: intPtr(11), Unlock: true}, "stress_level"},
		{"calorie range", profile.ProfileUpdate{DailyCalorieTarget: intPtr(900), Unlock: true}, "daily_calorie_target"},
		{"zero energy", profile.ProfileUpdate{EnergyLevel: intPtr(0), Unlock: true}, "energy_level"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := agg.Update(f.ctx, domainagg.UpdateProfileInput{UserID: u.ID, Update: tc.update})
			e := requireCode(t, err, apierr.CodeValidation)
			if tc.field != "" && e.Field != tc.field {
				t.Fatalf("field: want=%s got=%s", tc.field, e.Field)
			}
		})
	}

	full, err := f.set.Profiles.GetByUserID(f.dbc(), u.ID)
	if err != nil || full == nil || !full.IsLocked {
		t.Fatalf("rejected updates must not unlock the profile")
	}
}

func TestProfileUpdateUnknownUser(t *testing.T) {
	f := newFixture(t)
	_, err := f.profiles().Update(f.ctx, domainagg.UpdateProfileInput{
		UserID: uuid.New(),
		Update: profile.ProfileUpdate{EnergyLevel: intPtr(5)},
	})
	requireCode(t, err, apierr.CodeUserNotFound)
}

func TestSetLockWritesNoVersion(t *testing.T) {
	f := newFixture(t)
	agg := f.profiles()
	u := repotest.SeedUser(t, f.ctx, f.tx, "lock@example.com")
	p := repotest.SeedProfile(t, f.ctx, f.tx, u.ID)

	res, err := agg.SetLock(f.ctx, domainagg.SetLockInput{UserID: u.ID, Locked: false})
	if err != nil {
		t.Fatalf("SetLock unlock: %v", err)
	}
	if !res.Changed || res.IsLocked {
		t.Fatalf("unexpected unlock result: %+v", res)
	}
	res, err = agg.SetLock(f.ctx, domainagg.SetLockInput{UserID: u.ID, Locked: false})
	if err != nil {
		t.Fatalf("SetLock repeat: %v", err)
	}
	if res.Changed {
		t.Fatalf("repeat unlock should be a no-op")
	}
	max, err := f.set.Versions.MaxVersion(f.dbc(), p.ID)
	if err != nil || max != 0 {
		t.Fatalf("lock changes must not record versions: max=%d err=%v", max, err)
	}

	_, err = agg.SetLock(f.ctx, domainagg.SetLockInput{UserID: uuid.New(), Locked: true})
	requireCode(t, err, apierr.CodeUserNotFound)
}
