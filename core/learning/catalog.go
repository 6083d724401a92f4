package learning

import (
	"encoding/json"
	"io/fs"
	"regexp"
	"sort"
	"strconv"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
)

var (
	ErrLessonNotFound = errors.New("lesson not found")

	ordinalRegex = regexp.MustCompile(`\d+$`)
)

type (
	// Section is one titled block of lesson content.
	Section struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	}

	// Lesson is one ordered unit of instructional content. The lesson order is
	// total and fixed by the ordinal embedded in the ID (e.g. "lesson2"), ties
	// broken by ID.
	Lesson struct {
		ID          string  `json:"id"`
		Name        string  `json:"name"`
		Description string  `json:"description"`
		Intro       Section `json:"intro"`
		Rules       Section `json:"rules"`
		Examples    Section `json:"examples"`
	}

	// Question is a multiple-choice quiz question owned by exactly one lesson.
	// Correct is a 0-based index into Options.
	Question struct {
		Prompt  string   `json:"prompt"`
		Options []string `json:"options"`
		Correct int      `json:"correct"`
	}

	// Catalog is the immutable, ordered set of lessons and their quizzes.
	Catalog struct {
		lessons   []Lesson
		order     []string
		questions map[string][]Question
		index     map[string]int
	}

	catalogFile struct {
		Lessons []Lesson              `json:"lessons"`
		Quizzes map[string][]Question `json:"quizzes"`
	}
)

// NewCatalog validates the given content and fixes the lesson order.
// A lesson without at least one question is a content-authoring error:
// it would trivially pass its quiz and is rejected here instead.
func NewCatalog(lessons []Lesson, quizzes map[string][]Question) (*Catalog, error) {
	sorted := make([]Lesson, len(lessons))
	copy(sorted, lessons)
	sort.SliceStable(sorted, func(i, j int) bool {
		oi, oj := lessonOrdinal(sorted[i].ID), lessonOrdinal(sorted[j].ID)
		if oi != oj {
			return oi < oj
		}
		return sorted[i].ID < sorted[j].ID
	})

	cat := &Catalog{
		lessons:   sorted,
		order:     make([]string, 0, len(sorted)),
		questions: make(map[string][]Question, len(sorted)),
		index:     make(map[string]int, len(sorted)),
	}
	for i, l := range sorted {
		if _, exists := cat.index[l.ID]; exists {
			return nil, errors.Errorf("duplicate lesson id %q", l.ID)
		}
		if err := validateLesson(l, quizzes[l.ID]); err != nil {
			return nil, err
		}
		cat.order = append(cat.order, l.ID)
		cat.questions[l.ID] = quizzes[l.ID]
		cat.index[l.ID] = i
	}
	return cat, nil
}

// LoadCatalog parses and validates a JSON catalog file, typically the
// embedded content/lessons.json.
func LoadCatalog(fsys fs.FS, name string) (*Catalog, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, errors.Wrapf(err, "reading catalog %s", name)
	}
	var file catalogFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrapf(err, "parsing catalog %s", name)
	}
	return NewCatalog(file.Lessons, file.Quizzes)
}

func validateLesson(l Lesson, questions []Question) error {
	err := vala.BeginValidation().Validate(
		vala.StringNotEmpty(l.ID, "id"),
		vala.StringNotEmpty(l.Name, "name"),
		vala.StringNotEmpty(l.Intro.Title, "intro.title"),
		vala.StringNotEmpty(l.Intro.Body, "intro.body"),
		vala.StringNotEmpty(l.Rules.Title, "rules.title"),
		vala.StringNotEmpty(l.Rules.Body, "rules.body"),
		vala.StringNotEmpty(l.Examples.Title, "examples.title"),
		vala.StringNotEmpty(l.Examples.Body, "examples.body"),
	).Check()
	if err != nil {
		return errors.Wrapf(err, "lesson %q", l.ID)
	}

	if len(questions) == 0 {
		return errors.Errorf("lesson %q has no quiz questions", l.ID)
	}
	for i, q := range questions {
		if err := vala.BeginValidation().Validate(vala.StringNotEmpty(q.Prompt, "prompt")).Check(); err != nil {
			return errors.Wrapf(err, "lesson %q, question %d", l.ID, i)
		}
		if len(q.Options) == 0 {
			return errors.Errorf("lesson %q, question %d has no options", l.ID, i)
		}
		if q.Correct < 0 || q.Correct >= len(q.Options) {
			return errors.Errorf("lesson %q, question %d: correct option %d out of range", l.ID, i, q.Correct)
		}
	}
	return nil
}

func lessonOrdinal(id string) int {
	m := ordinalRegex.FindString(id)
	if m == "" {
		return 0
	}
	n, _ := strconv.Atoi(m)
	return n
}

// Lessons returns all lessons in catalog order.
func (c *Catalog) Lessons() []Lesson {
	lessons := make([]Lesson, len(c.lessons))
	copy(lessons, c.lessons)
	return lessons
}

// Lesson returns the lesson with the given id, or ErrLessonNotFound.
func (c *Catalog) Lesson(id string) (Lesson, error) {
	i, ok := c.index[id]
	if !ok {
		return Lesson{}, ErrLessonNotFound
	}
	return c.lessons[i], nil
}

// Questions returns the quiz questions of a lesson, in order.
func (c *Catalog) Questions(lessonID string) []Question {
	questions := make([]Question, len(c.questions[lessonID]))
	copy(questions, c.questions[lessonID])
	return questions
}

// Order returns the lesson ids in catalog order.
func (c *Catalog) Order() []string {
	order := make([]string, len(c.order))
	copy(order, c.order)
	return order
}

func (c *Catalog) Len() int { return len(c.lessons) }
