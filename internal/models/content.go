package models

// Exercise types
const (
	ExerciseTranslate = "translate"
	ExerciseMCQ       = "mcq"
	ExerciseFill      = "fill"
)

// ValidExerciseType reports whether t is one of the supported exercise types
func ValidExerciseType(t string) bool {
	switch t {
	case ExerciseTranslate, ExerciseMCQ, ExerciseFill:
		return true
	}
	return false
}

// DefaultXPReward is awarded by lessons that do not set their own reward
const DefaultXPReward = 10

// Language is the root of a content tree
type Language struct {
	ID      int64    `db:"id" json:"id"`
	Name    string   `db:"name" json:"name"`
	Code    string   `db:"code" json:"code"`
	Modules []Module `db:"-" json:"modules"`
}

// Module groups lessons inside a language
type Module struct {
	ID          int64    `db:"id" json:"id"`
	LanguageID  int64    `db:"language_id" json:"-"`
	Title       string   `db:"title" json:"title"`
	Order       int      `db:"position" json:"order"`
	Description string   `db:"description" json:"description"`
	Lessons     []Lesson `db:"-" json:"lessons"`
}

// Lesson is the unit a user completes to earn XP
type Lesson struct {
	ID        int64      `db:"id" json:"id"`
	ModuleID  int64      `db:"module_id" json:"-"`
	Title     string     `db:"title" json:"title"`
	Order     int        `db:"position" json:"order"`
	XPReward  int        `db:"xp_reward" json:"xp_reward"`
	Exercises []Exercise `db:"-" json:"exercises"`
}

// Exercise is a single question inside a lesson. Options is type-specific and
// passed through untouched.
type Exercise struct {
	ID       int64      `db:"id" json:"id"`
	LessonID int64      `db:"lesson_id" json:"-"`
	Type     string     `db:"type" json:"type"`
	Question string     `db:"question" json:"question"`
	Answer   string     `db:"answer" json:"answer"`
	Options  JSONObject `db:"options" json:"options"`
}
