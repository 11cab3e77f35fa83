package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ContentType tags the payload of a game module
type ContentType string

const (
	ContentQuiz         ContentType = "quiz"
	ContentWordScramble ContentType = "wordScramble"
	ContentPictureWord  ContentType = "pictureWord"
	ContentCrossword    ContentType = "crossword"
	ContentTutorial     ContentType = "tutorial"
)

// ContentTypes lists every recognized content type
var ContentTypes = []ContentType{
	ContentQuiz,
	ContentWordScramble,
	ContentPictureWord,
	ContentCrossword,
	ContentTutorial,
}

// ErrUnknownContentType is returned when a content tag is not recognized
var ErrUnknownContentType = errors.New("unknown content type")

// ParseContentType validates a content tag
func ParseContentType(s string) (ContentType, error) {
	for _, t := range ContentTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownContentType, s)
}

// Content is implemented by every game payload
type Content interface {
	ContentType() ContentType
	Validate() error
}

// GameContent is the tagged union stored on a module.
// On the wire it is {"type": "...", "data": {...}}.
type GameContent struct {
	Type    ContentType
	Payload Content
}

// NewGameContent wraps a payload with its tag
func NewGameContent(c Content) GameContent {
	return GameContent{Type: c.ContentType(), Payload: c}
}

// Validate checks the tag and the payload schema
func (g GameContent) Validate() error {
	if _, err := ParseContentType(string(g.Type)); err != nil {
		return err
	}
	if g.Payload == nil {
		return fmt.Errorf("%s: data is required", g.Type)
	}
	if g.Payload.ContentType() != g.Type {
		return fmt.Errorf("content type %q does not match data of type %q", g.Type, g.Payload.ContentType())
	}
	return g.Payload.Validate()
}

type gameContentJSON struct {
	Type ContentType     `json:"type"`
	Data json.RawMessage `json:"data"`
}

// MarshalJSON encodes the tagged form
func (g GameContent) MarshalJSON() ([]byte, error) {
	var data json.RawMessage
	if g.Payload != nil {
		raw, err := json.Marshal(g.Payload)
		if err != nil {
			return nil, err
		}
		data = raw
	} else {
		data = json.RawMessage("null")
	}
	return json.Marshal(gameContentJSON{Type: g.Type, Data: data})
}

// UnmarshalJSON decodes the payload selected by the type tag
func (g *GameContent) UnmarshalJSON(b []byte) error {
	var raw gameContentJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	c, err := DecodeGameContent(string(raw.Type), raw.Data)
	if err != nil {
		return err
	}
	*g = c
	return nil
}

// DecodeGameContent builds content from a tag and its raw JSON payload
func DecodeGameContent(tag string, data []byte) (GameContent, error) {
	t, err := ParseContentType(tag)
	if err != nil {
		return GameContent{}, err
	}

	var payload Content
	switch t {
	case ContentQuiz:
		payload = &QuizData{}
	case ContentWordScramble:
		payload = &WordScrambleData{}
	case ContentPictureWord:
		payload = &PictureWordData{}
	case ContentCrossword:
		payload = &CrosswordData{}
	case ContentTutorial:
		payload = &TutorialData{}
	}

	if len(data) > 0 && string(data) != "null" {
		if err := json.Unmarshal(data, payload); err != nil {
			return GameContent{}, fmt.Errorf("%s data: %w", t, err)
		}
	}

	return GameContent{Type: t, Payload: payload}, nil
}

// Clone deep-copies the payload through its JSON form
func (g GameContent) Clone() GameContent {
	if g.Payload == nil {
		return g
	}
	raw, err := json.Marshal(g)
	if err != nil {
		return g
	}
	var c GameContent
	if err := json.Unmarshal(raw, &c); err != nil {
		return g
	}
	return c
}

// QuizQuestion is a single multiple-choice question
type QuizQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	Explanation   string   `json:"explanation,omitempty"`
}

// QuizData is the payload of a quiz module
type QuizData struct {
	Questions []QuizQuestion `json:"questions"`
}

func (*QuizData) ContentType() ContentType { return ContentQuiz }

func (d *QuizData) Validate() error {
	if len(d.Questions) == 0 {
		return errors.New("quiz: at least one question is required")
	}
	for i, q := range d.Questions {
		if strings.TrimSpace(q.Question) == "" {
			return fmt.Errorf("quiz: question %d has no text", i+1)
		}
		if len(q.Options) < 2 {
			return fmt.Errorf("quiz: question %d needs at least two options", i+1)
		}
		if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
			return fmt.Errorf("quiz: question %d correct answer out of range", i+1)
		}
	}
	return nil
}

// WordScrambleData is the payload of a word scramble module
type WordScrambleData struct {
	Word     string `json:"word"`
	Hint     string `json:"hint"`
	Category string `json:"category"`
}

func (*WordScrambleData) ContentType() ContentType { return ContentWordScramble }

func (d *WordScrambleData) Validate() error {
	word := strings.TrimSpace(d.Word)
	if word == "" {
		return errors.New("wordScramble: word is required")
	}
	for _, r := range word {
		if !unicode.IsLetter(r) && r != ' ' {
			return fmt.Errorf("wordScramble: word contains invalid character %q", r)
		}
	}
	if strings.TrimSpace(d.Hint) == "" {
		return errors.New("wordScramble: hint is required")
	}
	return nil
}

// PictureWordData is the payload of a four-pictures-one-word module
type PictureWordData struct {
	Images      []string `json:"images"`
	CorrectWord string   `json:"correctWord"`
	Hints       []string `json:"hints"`
}

func (*PictureWordData) ContentType() ContentType { return ContentPictureWord }

func (d *PictureWordData) Validate() error {
	if len(d.Images) == 0 || len(d.Images) > 4 {
		return errors.New("pictureWord: between one and four images are required")
	}
	for i, img := range d.Images {
		if strings.TrimSpace(img) == "" {
			return fmt.Errorf("pictureWord: image %d is empty", i+1)
		}
	}
	if strings.TrimSpace(d.CorrectWord) == "" {
		return errors.New("pictureWord: correctWord is required")
	}
	return nil
}

// CrosswordClue is one numbered clue
type CrosswordClue struct {
	Number int    `json:"number"`
	Clue   string `json:"clue"`
	Answer string `json:"answer"`
}

// CrosswordClues groups clues by direction
type CrosswordClues struct {
	Across []CrosswordClue `json:"across"`
	Down   []CrosswordClue `json:"down"`
}

// CrosswordData is the payload of a crossword module
type CrosswordData struct {
	Grid  [][]string     `json:"grid"`
	Clues CrosswordClues `json:"clues"`
}

func (*CrosswordData) ContentType() ContentType { return ContentCrossword }

func (d *CrosswordData) Validate() error {
	if len(d.Grid) == 0 || len(d.Grid[0]) == 0 {
		return errors.New("crossword: grid is required")
	}
	width := len(d.Grid[0])
	for i, row := range d.Grid {
		if len(row) != width {
			return fmt.Errorf("crossword: row %d has %d cells, want %d", i+1, len(row), width)
		}
	}
	if len(d.Clues.Across)+len(d.Clues.Down) == 0 {
		return errors.New("crossword: at least one clue is required")
	}
	check := func(dir string, clues []CrosswordClue) error {
		for _, c := range clues {
			if c.Number <= 0 {
				return fmt.Errorf("crossword: %s clue has invalid number %d", dir, c.Number)
			}
			if strings.TrimSpace(c.Clue) == "" || strings.TrimSpace(c.Answer) == "" {
				return fmt.Errorf("crossword: %s clue %d needs text and answer", dir, c.Number)
			}
		}
		return nil
	}
	if err := check("across", d.Clues.Across); err != nil {
		return err
	}
	return check("down", d.Clues.Down)
}

// TutorialStep is one highlighted step of a walkthrough section
type TutorialStep struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Target      string `json:"target,omitempty"`
}

// TutorialSection is one page of a tutorial
type TutorialSection struct {
	Title   string         `json:"title"`
	Content string         `json:"content"`
	Type    string         `json:"type,omitempty"`
	Steps   []TutorialStep `json:"steps,omitempty"`
}

// TutorialData is the payload of a tutorial module
type TutorialData struct {
	Sections []TutorialSection `json:"sections"`
}

func (*TutorialData) ContentType() ContentType { return ContentTutorial }

func (d *TutorialData) Validate() error {
	if len(d.Sections) == 0 {
		return errors.New("tutorial: at least one section is required")
	}
	for i, s := range d.Sections {
		if strings.TrimSpace(s.Title) == "" || strings.TrimSpace(s.Content) == "" {
			return fmt.Errorf("tutorial: section %d needs a title and content", i+1)
		}
		for j, step := range s.Steps {
			if strings.TrimSpace(step.Title) == "" {
				return fmt.Errorf("tutorial: section %d step %d needs a title", i+1, j+1)
			}
		}
	}
	return nil
}
