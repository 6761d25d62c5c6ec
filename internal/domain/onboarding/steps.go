package onboarding

// Normalized step payloads. The json names are the stored step_data shape;
// the validate tags carry the range, enum and uniqueness rules. Keep the
// oneof lists in step with the slices below.

const (
	FitnessBeginner     = "beginner"
	FitnessIntermediate = "intermediate"
	FitnessAdvanced     = "advanced"
)

var FitnessLevels = []string{FitnessBeginner, FitnessIntermediate, FitnessAdvanced}

var GoalTypes = []string{
	"fat_loss",
	"muscle_gain",
	"general_fitness",
	"strength",
	"endurance",
	"maintenance",
	"athletic_performance",
}

var DietTypes = []string{
	"omnivore",
	"vegetarian",
	"vegan",
	"pescatarian",
	"keto",
	"paleo",
	"mediterranean",
	"other",
}

type Step1 struct {
	FitnessLevel string `json:"fitness_level" validate:"required,oneof=beginner intermediate advanced"`
}

type GoalInput struct {
	GoalType                string   `json:"goal_type" validate:"required,oneof=fat_loss muscle_gain general_fitness strength endurance maintenance athletic_performance"`
	Priority                int      `json:"priority" validate:"min=1,max=3"`
	TargetWeightKg          *float64 `json:"target_weight_kg,omitempty" validate:"omitempty,min=30,max=300"`
	TargetBodyFatPercentage *float64 `json:"target_body_fat_percentage,omitempty" validate:"omitempty,min=3,max=50"`
}

type Step2 struct {
	Goals []GoalInput `json:"goals" validate:"min=1,max=3,unique=Priority,dive"`
}

type Step3 struct {
	Equipment   []string `json:"equipment"`
	Injuries    []string `json:"injuries"`
	Limitations []string `json:"limitations"`
}

type Step4 struct {
	DietType     string   `json:"diet_type" validate:"required,oneof=omnivore vegetarian vegan pescatarian keto paleo mediterranean other"`
	Allergies    []string `json:"allergies"`
	Intolerances []string `json:"intolerances"`
	Dislikes     []string `json:"dislikes"`
}

type Step5 struct {
	DailyCalorieTarget int     `json:"daily_calorie_target" validate:"min=1000,max=5000"`
	ProteinPercentage  float64 `json:"protein_percentage" validate:"min=0,max=100"`
	CarbsPercentage    float64 `json:"carbs_percentage" validate:"min=0,max=100"`
	FatsPercentage     float64 `json:"fats_percentage" validate:"min=0,max=100"`
}

type MealSlot struct {
	MealName            string `json:"meal_name" validate:"required"`
	ScheduledTime       string `json:"scheduled_time" validate:"required,clock"`
	EnableNotifications bool   `json:"enable_notifications"`
}

type Step6 struct {
	Meals []MealSlot `json:"meals" validate:"min=1,max=8,dive"`
}

type WorkoutSlot struct {
	DayOfWeek           int    `json:"day_of_week" validate:"min=0,max=6"`
	ScheduledTime       string `json:"scheduled_time" validate:"required,clock"`
	EnableNotifications bool   `json:"enable_notifications"`
}

type Step7 struct {
	Workouts []WorkoutSlot `json:"workouts" validate:"min=1,max=7,unique=DayOfWeek,dive"`
}

type Step8 struct {
	DailyWaterTargetML       int `json:"daily_water_target_ml" validate:"min=1500,max=5000"`
	ReminderFrequencyMinutes int `json:"reminder_frequency_minutes" validate:"min=15,max=240"`
}

type Step9 struct {
	InterestedInSupplements bool     `json:"interested_in_supplements"`
	CurrentSupplements      []string `json:"current_supplements"`
}
