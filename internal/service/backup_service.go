package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"lingoquest/internal/database"
	"lingoquest/internal/logger"
	"lingoquest/internal/models"
	"lingoquest/internal/repository"
)

// BackupVersion is written into every export
const BackupVersion = "1.0"

// ExercisesSheet is the sheet read from XLSX imports
const ExercisesSheet = "Exercises"

// ContentBackup is the portable form of the content tree
type ContentBackup struct {
	Version    string           `json:"version,omitempty"`
	ExportedAt *time.Time       `json:"exported_at,omitempty"`
	Languages  []LanguageBackup `json:"languages"`
}

// LanguageBackup represents a language and its subtree
type LanguageBackup struct {
	Name    string         `json:"name"`
	Code    string         `json:"code"`
	Modules []ModuleBackup `json:"modules"`
}

// ModuleBackup represents a module and its lessons
type ModuleBackup struct {
	Title       string         `json:"title"`
	Order       int            `json:"order"`
	Description string         `json:"description"`
	Lessons     []LessonBackup `json:"lessons"`
}

// LessonBackup represents a lesson and its exercises. A missing xp_reward
// imports as the default reward.
type LessonBackup struct {
	Title     string           `json:"title"`
	Order     int              `json:"order"`
	XPReward  *int             `json:"xp_reward,omitempty"`
	Exercises []ExerciseBackup `json:"exercises"`
}

// ExerciseBackup represents one exercise
type ExerciseBackup struct {
	Type     string            `json:"type"`
	Question string            `json:"question"`
	Answer   string            `json:"answer"`
	Options  models.JSONObject `json:"options"`
}

// ImportResult counts what an import created
type ImportResult struct {
	LanguagesCreated int `json:"languages_created"`
	LanguagesReused  int `json:"languages_reused"`
	Modules          int `json:"modules"`
	Lessons          int `json:"lessons"`
	Exercises        int `json:"exercises"`
}

// ImportError lists every problem found in an import file. Nothing is written
// when it is returned.
type ImportError struct {
	Problems []string
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("import rejected: %s", strings.Join(e.Problems, "; "))
}

// BackupService handles content import, export and removal
type BackupService struct {
	db      *database.DB
	content *repository.ContentRepository
	reader  *ContentService
	log     *logger.Logger
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB, content *repository.ContentRepository, reader *ContentService, log *logger.Logger) *BackupService {
	return &BackupService{
		db:      db,
		content: content,
		reader:  reader,
		log:     log.With("service", "backup"),
	}
}

// Export writes the whole content tree to w as indented JSON
func (s *BackupService) Export(ctx context.Context, w io.Writer) (*ContentBackup, error) {
	langs, err := s.reader.ListLanguages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load content: %w", err)
	}

	now := time.Now().UTC()
	backup := &ContentBackup{
		Version:    BackupVersion,
		ExportedAt: &now,
		Languages:  make([]LanguageBackup, 0, len(langs)),
	}
	for _, l := range langs {
		lb := LanguageBackup{Name: l.Name, Code: l.Code, Modules: make([]ModuleBackup, 0, len(l.Modules))}
		for _, m := range l.Modules {
			mb := ModuleBackup{Title: m.Title, Order: m.Order, Description: m.Description, Lessons: make([]LessonBackup, 0, len(m.Lessons))}
			for _, ls := range m.Lessons {
				reward := ls.XPReward
				lsb := LessonBackup{Title: ls.Title, Order: ls.Order, XPReward: &reward, Exercises: make([]ExerciseBackup, 0, len(ls.Exercises))}
				for _, ex := range ls.Exercises {
					lsb.Exercises = append(lsb.Exercises, ExerciseBackup{Type: ex.Type, Question: ex.Question, Answer: ex.Answer, Options: ex.Options})
				}
				mb.Lessons = append(mb.Lessons, lsb)
			}
			lb.Modules = append(lb.Modules, mb)
		}
		backup.Languages = append(backup.Languages, lb)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return nil, fmt.Errorf("failed to encode backup: %w", err)
	}

	s.log.Info("content exported", "languages", len(backup.Languages))
	return backup, nil
}

// DecodeJSON reads a content backup from r
func DecodeJSON(r io.Reader) (*ContentBackup, error) {
	var backup ContentBackup
	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&backup); err != nil {
		return nil, fmt.Errorf("failed to decode backup: %w", err)
	}
	return &backup, nil
}

// DecodeXLSX reads the Exercises sheet of a workbook into a content backup.
// Row 1 is a header. Columns A..K hold language_code, language_name,
// module_order, module_title, module_description, lesson_order,
// lesson_title, xp_reward, exercise_type, question and answer; column L
// optionally holds the options object. Rows group into languages by code,
// into modules by title and into lessons by title.
func DecodeXLSX(r io.Reader) (*ContentBackup, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(ExercisesSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}

	backup := &ContentBackup{Languages: []LanguageBackup{}}
	langIndex := make(map[string]int)
	moduleIndex := make(map[string]int)
	lessonIndex := make(map[string]int)
	var problems []string

	for i, row := range rows {
		if i == 0 || blankRow(row) {
			continue
		}
		rowNum := i + 1
		cell := func(col int) string {
			if col < len(row) {
				return strings.TrimSpace(row[col])
			}
			return ""
		}

		moduleOrder, err := parseIntCell(cell(2), 0)
		if err != nil {
			problems = append(problems, fmt.Sprintf("row %d: module_order: %v", rowNum, err))
			continue
		}
		lessonOrder, err := parseIntCell(cell(5), 0)
		if err != nil {
			problems = append(problems, fmt.Sprintf("row %d: lesson_order: %v", rowNum, err))
			continue
		}
		reward, err := parseIntCell(cell(7), models.DefaultXPReward)
		if err != nil {
			problems = append(problems, fmt.Sprintf("row %d: xp_reward: %v", rowNum, err))
			continue
		}
		options, err := models.ParseJSONObject([]byte(cell(11)))
		if err != nil {
			problems = append(problems, fmt.Sprintf("row %d: %v", rowNum, err))
			continue
		}

		code := cell(0)
		li, ok := langIndex[code]
		if !ok {
			backup.Languages = append(backup.Languages, LanguageBackup{Code: code, Name: cell(1), Modules: []ModuleBackup{}})
			li = len(backup.Languages) - 1
			langIndex[code] = li
		}
		lang := &backup.Languages[li]

		moduleKey := code + "\x00" + cell(3)
		mi, ok := moduleIndex[moduleKey]
		if !ok {
			lang.Modules = append(lang.Modules, ModuleBackup{Title: cell(3), Order: moduleOrder, Description: cell(4), Lessons: []LessonBackup{}})
			mi = len(lang.Modules) - 1
			moduleIndex[moduleKey] = mi
		}
		mod := &lang.Modules[mi]

		lessonKey := moduleKey + "\x00" + cell(6)
		lsi, ok := lessonIndex[lessonKey]
		if !ok {
			xp := reward
			mod.Lessons = append(mod.Lessons, LessonBackup{Title: cell(6), Order: lessonOrder, XPReward: &xp, Exercises: []ExerciseBackup{}})
			lsi = len(mod.Lessons) - 1
			lessonIndex[lessonKey] = lsi
		}
		lesson := &mod.Lessons[lsi]

		lesson.Exercises = append(lesson.Exercises, ExerciseBackup{
			Type:     strings.ToLower(cell(8)),
			Question: cell(9),
			Answer:   cell(10),
			Options:  options,
		})
	}

	if len(problems) > 0 {
		return nil, &ImportError{Problems: problems}
	}
	return backup, nil
}

// Import writes backup into the database in one transaction. Languages are
// matched by code and reused; modules, lessons and exercises are always
// created. With clear set, all existing content is removed first.
func (s *BackupService) Import(ctx context.Context, backup *ContentBackup, clear bool) (*ImportResult, error) {
	if problems := checkBackup(backup); len(problems) > 0 {
		return nil, &ImportError{Problems: problems}
	}

	result := &ImportResult{}
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		if clear {
			s.log.Warn("clearing existing content before import")
			if err := s.content.DeleteAll(ctx, tx); err != nil {
				return err
			}
		}

		for _, lb := range backup.Languages {
			lang, err := s.content.GetLanguageByCode(ctx, tx, lb.Code)
			if err != nil {
				return err
			}
			if lang == nil {
				lang = &models.Language{Name: lb.Name, Code: lb.Code}
				if err := s.content.CreateLanguage(ctx, tx, lang); err != nil {
					return err
				}
				result.LanguagesCreated++
			} else {
				result.LanguagesReused++
			}

			for _, mb := range lb.Modules {
				mod := &models.Module{LanguageID: lang.ID, Title: mb.Title, Order: mb.Order, Description: mb.Description}
				if err := s.content.CreateModule(ctx, tx, mod); err != nil {
					return err
				}
				result.Modules++

				for _, lsb := range mb.Lessons {
					reward := models.DefaultXPReward
					if lsb.XPReward != nil {
						reward = *lsb.XPReward
					}
					lesson := &models.Lesson{ModuleID: mod.ID, Title: lsb.Title, Order: lsb.Order, XPReward: reward}
					if err := s.content.CreateLesson(ctx, tx, lesson); err != nil {
						return err
					}
					result.Lessons++

					for _, eb := range lsb.Exercises {
						ex := &models.Exercise{LessonID: lesson.ID, Type: eb.Type, Question: eb.Question, Answer: eb.Answer, Options: eb.Options}
						if err := s.content.CreateExercise(ctx, tx, ex); err != nil {
							return err
						}
						result.Exercises++
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to import content: %w", err)
	}

	s.invalidate(ctx)
	s.log.Info("content imported",
		"languages_created", result.LanguagesCreated,
		"languages_reused", result.LanguagesReused,
		"modules", result.Modules,
		"lessons", result.Lessons,
		"exercises", result.Exercises)
	return result, nil
}

// DeleteLanguage removes the language with code together with its subtree
// and any progress recorded against its lessons
func (s *BackupService) DeleteLanguage(ctx context.Context, code string) error {
	deleted, err := s.content.DeleteLanguageByCode(ctx, nil, code)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("language %q: %w", code, ErrLanguageNotFound)
	}
	s.invalidate(ctx)
	s.log.Info("language deleted", "code", code)
	return nil
}

// ErrLanguageNotFound is returned when deleting an unknown language code
var ErrLanguageNotFound = errors.New("language not found")

func (s *BackupService) invalidate(ctx context.Context) {
	if err := s.reader.Invalidate(ctx); err != nil {
		s.log.Warn("content changed but cache was not cleared", "error", err)
	}
}

func checkBackup(backup *ContentBackup) []string {
	if backup == nil {
		return []string{"backup is empty"}
	}
	var problems []string
	seen := make(map[string]bool)
	for li, l := range backup.Languages {
		where := fmt.Sprintf("languages[%d]", li)
		if l.Code == "" {
			problems = append(problems, where+": code is required")
		} else if seen[l.Code] {
			problems = append(problems, fmt.Sprintf("%s: duplicate code %q", where, l.Code))
		}
		seen[l.Code] = true
		if l.Name == "" {
			problems = append(problems, where+": name is required")
		}
		for mi, m := range l.Modules {
			mwhere := fmt.Sprintf("%s.modules[%d]", where, mi)
			if m.Title == "" {
				problems = append(problems, mwhere+": title is required")
			}
			for lsi, ls := range m.Lessons {
				lwhere := fmt.Sprintf("%s.lessons[%d]", mwhere, lsi)
				if ls.Title == "" {
					problems = append(problems, lwhere+": title is required")
				}
				if ls.XPReward != nil && *ls.XPReward < 0 {
					problems = append(problems, lwhere+": xp_reward must not be negative")
				}
				for ei, ex := range ls.Exercises {
					ewhere := fmt.Sprintf("%s.exercises[%d]", lwhere, ei)
					if !models.ValidExerciseType(ex.Type) {
						problems = append(problems, fmt.Sprintf("%s: invalid exercise type %q", ewhere, ex.Type))
					}
					if ex.Question == "" {
						problems = append(problems, ewhere+": question is required")
					}
				}
			}
		}
	}
	return problems
}

func parseIntCell(v string, fallback int) (int, error) {
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%q is not a whole number", v)
	}
	return n, nil
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
