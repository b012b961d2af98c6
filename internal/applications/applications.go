// Package applications is a file-backed store of job applications: the records that receive
// generated cover letters and match scores.
package applications

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/spigell/careerpath-ai/internal/ai"
	"github.com/spigell/careerpath-ai/internal/ai/response"
)

const (
	StatusPending   = "pending"
	StatusAccepted  = "accepted"
	StatusRejected  = "rejected"
	StatusInterview = "interview"
)

const (
	ContractCDI       = "CDI"
	ContractCDD       = "CDD"
	ContractFreelance = "Freelance"
	ContractStage     = "Stage"
)

var (
	ErrNotFound     = errors.New("application not found")
	ErrForbidden    = errors.New("you can only update your own applications")
	ErrInvalidScore = errors.New("match score must be between 0 and 100")
)

// Application is a candidate's application to a job, with the candidate and job already resolved.
type Application struct {
	ID                 string               `json:"id"`
	Status             string               `json:"status,omitempty"`
	CandidateID        string               `json:"candidateId,omitempty"`
	Candidate          ai.CandidateSnapshot `json:"candidate"`
	Job                ai.JobSnapshot       `json:"job"`
	CoverLetter        string               `json:"coverLetter,omitempty"`
	AIGeneratedContent string               `json:"aiGeneratedContent,omitempty"`
	MatchScore         *int                 `json:"matchScore,omitempty"`
	MatchJustification string               `json:"matchJustification,omitempty"`
	MatchError         string               `json:"matchError,omitempty"`
	AppliedAt          *time.Time           `json:"appliedAt,omitempty"`
	AnalyzedAt         *time.Time           `json:"analyzedAt,omitempty"`
}

// Scored reports whether a match score has been recorded.
func (a *Application) Scored() bool {
	return a != nil && a.MatchScore != nil
}

type document struct {
	Items []*Application `json:"items"`
}

// Store holds the applications of one file. It is safe for concurrent use; changes are written
// back with Flush.
type Store struct {
	path string

	mu    sync.RWMutex
	items []*Application
	index map[string]*Application
	now   func() time.Time
}

// Open loads the store at path. A missing or empty file yields an empty store.
func Open(path string) (*Store, error) {
	s := &Store{
		path:  path,
		index: make(map[string]*Application),
		now:   func() time.Time { return time.Now().UTC() },
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return s, nil
	}

	items, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode applications file %q: %w", path, err)
	}

	for _, item := range items {
		if item == nil || strings.TrimSpace(item.ID) == "" {
			return nil, fmt.Errorf("decode applications file %q: application without id", path)
		}
		if _, ok := s.index[item.ID]; ok {
			return nil, fmt.Errorf("decode applications file %q: duplicate application %q", path, item.ID)
		}
		if item.Status == "" {
			item.Status = StatusPending
		}
		s.items = append(s.items, item)
		s.index[item.ID] = item
	}

	return s, nil
}

// decode accepts either {"items": [...]} or a bare array of applications.
func decode(data []byte) ([]*Application, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	if list, ok := raw.([]any); ok {
		raw = map[string]any{"items": list}
	}

	var doc document
	cfg := &mapstructure.DecoderConfig{
		TagName:    "json",
		Result:     &doc,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(timeHook),
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, err
	}

	return doc.Items, nil
}

func timeHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf(time.Time{}) {
		return data, nil
	}
	return time.Parse(time.RFC3339, data.(string))
}

func (s *Store) Path() string { return s.path }

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Get returns a copy of the application with the given id.
func (s *Store) Get(id string) (*Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return clone(item), nil
}

// Items returns copies of all applications in file order.
func (s *Store) Items() []*Application {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]*Application, 0, len(s.items))
	for _, item := range s.items {
		items = append(items, clone(item))
	}
	return items
}

// UpdateMatchScore records a successful analysis and clears any previous error.
func (s *Store) UpdateMatchScore(id string, score int, justification string) error {
	if score < response.MinScore || score > response.MaxScore {
		return fmt.Errorf("%w: %d", ErrInvalidScore, score)
	}

	return s.update(id, func(item *Application) error {
		analyzedAt := s.now()
		item.MatchScore = &score
		item.MatchJustification = strings.TrimSpace(justification)
		item.MatchError = ""
		item.AnalyzedAt = &analyzedAt
		return nil
	})
}

// RecordMatchError records a failed analysis. A previous score is kept.
func (s *Store) RecordMatchError(id string, cause error) error {
	return s.update(id, func(item *Application) error {
		analyzedAt := s.now()
		item.MatchError = cause.Error()
		item.AnalyzedAt = &analyzedAt
		return nil
	})
}

// SaveAIContent stores generated content on an application owned by candidateID. An empty
// candidateID skips the ownership check.
func (s *Store) SaveAIContent(id, candidateID, content string) error {
	return s.update(id, func(item *Application) error {
		if candidateID != "" && item.CandidateID != candidateID {
			return ErrForbidden
		}
		item.AIGeneratedContent = strings.TrimSpace(content)
		return nil
	})
}

func (s *Store) update(id string, apply func(*Application) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return apply(item)
}

// Flush writes the store back to its file, replacing the previous content.
func (s *Store) Flush() error {
	s.mu.RLock()
	doc := document{Items: s.items}
	if doc.Items == nil {
		doc.Items = []*Application{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return err
	}

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	if _, err := file.Write(append(data, '\n')); err != nil {
		return err
	}
	return nil
}

// Shortlist returns the scored applications ordered by descending score, then by id.
func Shortlist(items []*Application) []*Application {
	scored := make([]*Application, 0, len(items))
	for _, item := range items {
		if item.Scored() {
			scored = append(scored, item)
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if *scored[i].MatchScore != *scored[j].MatchScore {
			return *scored[i].MatchScore > *scored[j].MatchScore
		}
		return scored[i].ID < scored[j].ID
	})
	return scored
}

func clone(item *Application) *Application {
	copied := *item
	if item.MatchScore != nil {
		score := *item.MatchScore
		copied.MatchScore = &score
	}
	if item.AnalyzedAt != nil {
		at := *item.AnalyzedAt
		copied.AnalyzedAt = &at
	}
	if item.AppliedAt != nil {
		at := *item.AppliedAt
		copied.AppliedAt = &at
	}
	if item.Job.Skills != nil {
		copied.Job.Skills = append([]ai.Skill(nil), item.Job.Skills...)
	}
	return &copied
}

// DumpToTmpFile writes items as indented JSON to a new temporary file and returns its name.
func DumpToTmpFile(items []*Application) (string, error) {
	file, err := os.CreateTemp("", "applications_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(document{Items: items}); err != nil {
		return "", err
	}
	return file.Name(), nil
}
