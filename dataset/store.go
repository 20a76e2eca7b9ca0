package dataset

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/encoding"

	"loandesk/ml"
)

const (
	Training = "training"
	Testing  = "testing"
)

// Definition names a dataset and the two files backing it.
type Definition struct {
	Name         string
	Schema       ml.Schema
	FeaturesPath string
	LabelsPath   string
	// Encoding is a WHATWG label for both files; empty means UTF-8.
	Encoding string
}

type EventType string

const (
	EventCreated     EventType = "created"
	EventAppended    EventType = "appended"
	EventDeleted     EventType = "deleted"
	EventInvalidated EventType = "invalidated"
)

// Event describes a committed change to a dataset.
type Event struct {
	Dataset string    `json:"dataset"`
	Type    EventType `json:"type"`
	Index   int       `json:"index"`
	Rows    int       `json:"rows"`
}

type Option func(*Store)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithOnChange registers fn to be called after every committed change. It
// runs while the dataset is locked and must not call back into the Store.
func WithOnChange(fn func(Event)) Option {
	return func(s *Store) {
		s.onChange = fn
	}
}

// Store keeps named datasets in memory and rewrites both backing files
// after every mutation. Each dataset has its own lock around
// load and mutate-then-persist.
type Store struct {
	entries  map[string]*entry
	logger   *zap.Logger
	onChange func(Event)
}

type entry struct {
	mu    sync.Mutex
	def   Definition
	enc   encoding.Encoding
	data  *Dataset
	stamp fileStamp
}

// fileStamp identifies the on-disk state the cached copy was read from or
// written as.
type fileStamp struct {
	featuresMod, labelsMod   time.Time
	featuresSize, labelsSize int64
}

func NewStore(defs []Definition, opts ...Option) (*Store, error) {
	s := &Store{
		entries: make(map[string]*entry, len(defs)),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, def := range defs {
		if def.Name == "" {
			return nil, errors.New("dataset name is required")
		}
		if def.FeaturesPath == "" || def.LabelsPath == "" {
			return nil, fmt.Errorf("dataset %s: both file paths are required", def.Name)
		}
		if def.Schema.Width() == 0 {
			return nil, fmt.Errorf("dataset %s: schema has no columns", def.Name)
		}
		if _, exists := s.entries[def.Name]; exists {
			return nil, fmt.Errorf("dataset %s defined twice", def.Name)
		}
		enc, err := fileEncoding(def.Encoding)
		if err != nil {
			return nil, fmt.Errorf("dataset %s: %w", def.Name, err)
		}
		s.entries[def.Name] = &entry{def: def, enc: enc}
	}
	return s, nil
}

func (s *Store) Names() []string {
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Store) Definition(name string) (Definition, error) {
	e, err := s.entry(name)
	if err != nil {
		return Definition{}, err
	}
	return e.def, nil
}

// Load reads the dataset from storage, replacing any cached copy.
func (s *Store) Load(name string) (*Dataset, error) {
	e, err := s.entry(name)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := s.reload(e); err != nil {
		return nil, err
	}
	return e.data.Clone(), nil
}

// List returns the current view, reading storage only on first access.
func (s *Store) List(name string) (*Dataset, error) {
	e, err := s.entry(name)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := s.ensureLoaded(e); err != nil {
		return nil, err
	}
	return e.data.Clone(), nil
}

// Append adds one record to both tables and returns its index. Nothing is
// written unless the row fits the schema and the label is binary.
func (s *Store) Append(name string, row ml.FeatureRow, label ml.Label) (int, error) {
	e, err := s.entry(name)
	if err != nil {
		return 0, err
	}
	if err := e.def.Schema.Check(row); err != nil {
		return 0, err
	}
	if !label.Valid() {
		return 0, fmt.Errorf("%w: %d", ml.ErrInvalidLabel, label)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := s.ensureLoaded(e); err != nil {
		return 0, err
	}
	next := e.data.withAppended(row, label)
	if err := s.commit(e, next); err != nil {
		return 0, err
	}
	index := next.Len() - 1
	s.logger.Info("dataset row appended",
		zap.String("dataset", name),
		zap.Int("index", index),
		zap.Int("rows", next.Len()))
	s.notify(Event{Dataset: name, Type: EventAppended, Index: index, Rows: next.Len()})
	return index, nil
}

// Delete removes record index from both tables and returns the number of
// records left. Later records shift down by one.
func (s *Store) Delete(name string, index int) (int, error) {
	e, err := s.entry(name)
	if err != nil {
		return 0, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := s.ensureLoaded(e); err != nil {
		return 0, err
	}
	next, err := e.data.withRemoved(index)
	if err != nil {
		return 0, err
	}
	if err := s.commit(e, next); err != nil {
		return 0, err
	}
	s.logger.Info("dataset row deleted",
		zap.String("dataset", name),
		zap.Int("index", index),
		zap.Int("rows", next.Len()))
	s.notify(Event{Dataset: name, Type: EventDeleted, Index: index, Rows: next.Len()})
	return next.Len(), nil
}

// CreateIfMissing writes header-only files for a dataset whose files are
// both absent. A dataset with exactly one file present is left alone and
// reported as unavailable.
func (s *Store) CreateIfMissing(name string) error {
	e, err := s.entry(name)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	featuresExist, err := fileExists(e.def.FeaturesPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	labelsExist, err := fileExists(e.def.LabelsPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	switch {
	case featuresExist && labelsExist:
		return nil
	case featuresExist != labelsExist:
		return fmt.Errorf("%w: dataset %s has only one of its two files", ErrDataUnavailable, name)
	}

	for _, path := range []string{e.def.FeaturesPath, e.def.LabelsPath} {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("%w: %v", ErrDataUnavailable, err)
		}
	}
	empty := &Dataset{Name: name, Schema: e.def.Schema, LabelColumn: DefaultLabelColumn}
	if err := s.commit(e, empty); err != nil {
		return err
	}
	s.logger.Info("dataset created", zap.String("dataset", name))
	s.notify(Event{Dataset: name, Type: EventCreated})
	return nil
}

// InvalidatePath drops the cached copy of the dataset backed by path when
// the file no longer matches what the store last read or wrote.
func (s *Store) InvalidatePath(path string) {
	path = filepath.Clean(path)
	for name, e := range s.entries {
		if filepath.Clean(e.def.FeaturesPath) != path && filepath.Clean(e.def.LabelsPath) != path {
			continue
		}
		e.mu.Lock()
		if e.data != nil {
			stamp, err := statFiles(e.def)
			if err != nil || !stamp.equal(e.stamp) {
				e.data = nil
				s.logger.Info("dataset changed on disk", zap.String("dataset", name), zap.String("path", path))
				s.notify(Event{Dataset: name, Type: EventInvalidated})
			}
		}
		e.mu.Unlock()
	}
}

func (s *Store) entry(name string) (*entry, error) {
	e, ok := s.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDataset, name)
	}
	return e, nil
}

func (s *Store) ensureLoaded(e *entry) error {
	if e.data != nil {
		return nil
	}
	return s.reload(e)
}

func (s *Store) reload(e *entry) error {
	data, err := readDataset(e.def, e.enc)
	if err != nil {
		s.logger.Warn("dataset unavailable", zap.String("dataset", e.def.Name), zap.Error(err))
		return err
	}
	stamp, err := statFiles(e.def)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	e.data = data
	e.stamp = stamp
	return nil
}

func (s *Store) notify(event Event) {
	if s.onChange != nil {
		s.onChange(event)
	}
}

// commit writes both tables for next and only then makes it the cached copy.
// Both files are staged next to their targets and renamed into place; if the
// label rename fails the feature file is put back to the previous state.
func (s *Store) commit(e *entry, next *Dataset) error {
	featuresTmp, err := stageFile(e.def.FeaturesPath, e.enc, func(w io.Writer) error {
		return WriteFeatureTable(w, next.Schema, next.Rows)
	})
	if err != nil {
		return fmt.Errorf("%w: stage %s: %v", ErrDataUnavailable, e.def.FeaturesPath, err)
	}
	labelsTmp, err := stageFile(e.def.LabelsPath, e.enc, func(w io.Writer) error {
		return WriteLabelTable(w, next.LabelColumn, next.Labels)
	})
	if err != nil {
		os.Remove(featuresTmp)
		return fmt.Errorf("%w: stage %s: %v", ErrDataUnavailable, e.def.LabelsPath, err)
	}

	if err := os.Rename(featuresTmp, e.def.FeaturesPath); err != nil {
		os.Remove(featuresTmp)
		os.Remove(labelsTmp)
		return fmt.Errorf("%w: commit %s: %v", ErrDataUnavailable, e.def.FeaturesPath, err)
	}
	if err := os.Rename(labelsTmp, e.def.LabelsPath); err != nil {
		os.Remove(labelsTmp)
		if rbErr := s.rollbackFeatures(e); rbErr != nil {
			s.logger.Error("feature table rollback failed",
				zap.String("dataset", e.def.Name),
				zap.Error(rbErr))
		}
		return fmt.Errorf("%w: commit %s: %v", ErrDataUnavailable, e.def.LabelsPath, err)
	}

	e.data = next
	stamp, err := statFiles(e.def)
	if err != nil {
		// next access re-reads storage
		e.data = nil
		return nil
	}
	e.stamp = stamp
	return nil
}

func (s *Store) rollbackFeatures(e *entry) error {
	if e.data == nil {
		return os.Remove(e.def.FeaturesPath)
	}
	tmp, err := stageFile(e.def.FeaturesPath, e.enc, func(w io.Writer) error {
		return WriteFeatureTable(w, e.data.Schema, e.data.Rows)
	})
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, e.def.FeaturesPath); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

func readDataset(def Definition, enc encoding.Encoding) (*Dataset, error) {
	rows, err := readFile(def.FeaturesPath, enc, func(r io.Reader) ([]ml.FeatureRow, error) {
		return ReadFeatureTable(r, def.Schema)
	})
	if err != nil {
		return nil, err
	}
	var column string
	labels, err := readFile(def.LabelsPath, enc, func(r io.Reader) ([]ml.Label, error) {
		var labels []ml.Label
		var err error
		column, labels, err = ReadLabelTable(r)
		return labels, err
	})
	if err != nil {
		return nil, err
	}
	if len(rows) != len(labels) {
		return nil, fmt.Errorf("%w: %s has %d feature rows but %d labels", ErrDataUnavailable, def.Name, len(rows), len(labels))
	}
	return &Dataset{
		Name:        def.Name,
		Schema:      def.Schema,
		LabelColumn: column,
		Rows:        rows,
		Labels:      labels,
	}, nil
}

func readFile[T any](path string, enc encoding.Encoding, read func(io.Reader) (T, error)) (T, error) {
	var zero T
	file, err := os.Open(path)
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	defer file.Close()

	value, err := read(decodeReader(file, enc))
	if err != nil {
		return zero, fmt.Errorf("%s: %w", path, err)
	}
	return value, nil
}

// stageFile writes a temp file in path's directory and returns its name.
func stageFile(path string, enc encoding.Encoding, write func(io.Writer) error) (string, error) {
	file, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", err
	}
	name := file.Name()
	ok := false
	defer func() {
		if !ok {
			file.Close()
			os.Remove(name)
		}
	}()

	buf := bufio.NewWriter(file)
	out := encodeWriter(buf, enc)
	if err := write(out); err != nil {
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	if err := buf.Flush(); err != nil {
		return "", err
	}
	if err := file.Sync(); err != nil {
		return "", err
	}
	if err := file.Close(); err != nil {
		os.Remove(name)
		ok = true
		return "", err
	}
	ok = true
	return name, nil
}

func (f fileStamp) equal(other fileStamp) bool {
	return f.featuresMod.Equal(other.featuresMod) && f.labelsMod.Equal(other.labelsMod) &&
		f.featuresSize == other.featuresSize && f.labelsSize == other.labelsSize
}

func statFiles(def Definition) (fileStamp, error) {
	features, err := os.Stat(def.FeaturesPath)
	if err != nil {
		return fileStamp{}, err
	}
	labels, err := os.Stat(def.LabelsPath)
	if err != nil {
		return fileStamp{}, err
	}
	return fileStamp{
		featuresMod:  features.ModTime(),
		featuresSize: features.Size(),
		labelsMod:    labels.ModTime(),
		labelsSize:   labels.Size(),
	}, nil
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}
