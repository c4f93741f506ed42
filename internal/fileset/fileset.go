package fileset

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/dshills/codecheck/internal/analysis"
)

// Source describes a file to add. When Data is nil the content is read from
// Path on first use.
type Source struct {
	Name string
	Path string
	Data []byte
}

// Record is one file in the set.
type Record struct {
	Name  string
	Path  string
	Ext   string
	Order int

	data    []byte
	once    sync.Once
	content []byte
	err     error
}

// Content returns the file bytes, reading them once.
func (r *Record) Content() ([]byte, error) {
	r.once.Do(func() {
		if r.data != nil {
			r.content = r.data
			return
		}
		if r.Path == "" {
			r.err = fmt.Errorf("%s: no content", r.Name)
			return
		}
		r.content, r.err = os.ReadFile(r.Path)
	})
	return r.content, r.err
}

// Display holds per-file presentation state. It never influences results.
type Display struct {
	ShowOriginal bool
	Expanded     map[int]bool
}

func (d Display) clone() Display {
	if d.Expanded == nil {
		return d
	}
	expanded := make(map[int]bool, len(d.Expanded))
	for k, v := range d.Expanded {
		expanded[k] = v
	}
	d.Expanded = expanded
	return d
}

// NoticeKind classifies a Notice.
type NoticeKind int

const (
	// NoticeNone means the call changed nothing.
	NoticeNone NoticeKind = iota
	NoticeAdded
	NoticeRemoved
)

// Notice is an informational message for the user.
type Notice struct {
	Kind       NoticeKind
	Message    string
	Added      []string
	Duplicates []string
}

// Set is an ordered collection of uniquely named files with their per-file
// configuration, display state and latest outcome. It is safe for
// concurrent use.
type Set struct {
	mu       sync.Mutex
	records  []*Record
	configs  map[string]analysis.RunConfig
	display  map[string]Display
	outcomes map[string]analysis.Outcome
	active   int
	defaults analysis.RunConfig
}

// New creates an empty set whose new records get defaults as their config.
func New(defaults analysis.RunConfig) *Set {
	return &Set{
		configs:  make(map[string]analysis.RunConfig),
		display:  make(map[string]Display),
		outcomes: make(map[string]analysis.Outcome),
		defaults: defaults,
	}
}

// Add appends sources in arrival order. A source whose name is already in
// the set, or repeats earlier in the same call, is dropped.
func (s *Set) Add(sources ...Source) Notice {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool, len(s.records)+len(sources))
	for _, r := range s.records {
		seen[r.Name] = true
	}
	var n Notice
	for _, src := range sources {
		if src.Name == "" || seen[src.Name] {
			n.Duplicates = append(n.Duplicates, src.Name)
			continue
		}
		seen[src.Name] = true
		r := &Record{
			Name:  src.Name,
			Path:  src.Path,
			Ext:   analysis.Ext(src.Name),
			Order: len(s.records),
			data:  src.Data,
		}
		s.records = append(s.records, r)
		s.configs[r.Name] = s.defaults
		s.display[r.Name] = Display{}
		n.Added = append(n.Added, r.Name)
	}
	if len(n.Added) == 0 {
		n.Kind = NoticeNone
		n.Message = "no new files added"
		if len(n.Duplicates) > 0 {
			n.Message += ": already present: " + strings.Join(n.Duplicates, ", ")
		}
		return n
	}
	n.Kind = NoticeAdded
	n.Message = fmt.Sprintf("added %d file(s)", len(n.Added))
	if len(n.Duplicates) > 0 {
		n.Message += fmt.Sprintf(", skipped %d duplicate(s): %s", len(n.Duplicates), strings.Join(n.Duplicates, ", "))
	}
	return n
}

// Remove deletes the record at index together with everything keyed by its
// name, and renumbers the records after it.
func (s *Set) Remove(index int) (Notice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.records) {
		return Notice{}, fmt.Errorf("index %d out of range [0,%d)", index, len(s.records))
	}
	name := s.records[index].Name
	s.records = append(s.records[:index], s.records[index+1:]...)
	for i := index; i < len(s.records); i++ {
		s.records[i].Order = i
	}
	delete(s.configs, name)
	delete(s.display, name)
	delete(s.outcomes, name)

	switch {
	case index == s.active:
		s.active = max(0, index-1)
	case index < s.active:
		s.active--
	}
	if last := len(s.records) - 1; s.active > last {
		s.active = max(0, last)
	}
	return Notice{Kind: NoticeRemoved, Message: "removed " + name}, nil
}

// Len returns the number of records.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Records returns the records in order.
func (s *Set) Records() []*Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Record, len(s.records))
	copy(out, s.records)
	return out
}

// Select makes index the active record.
func (s *Set) Select(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.records) {
		return fmt.Errorf("index %d out of range [0,%d)", index, len(s.records))
	}
	s.active = index
	return nil
}

// Active returns the selected index. It is 0 for an empty set.
func (s *Set) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Config returns the run configuration of a file.
func (s *Set) Config(name string) (analysis.RunConfig, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.configs[name]
	return cfg, ok
}

// SetConfig replaces the run configuration of a file already in the set.
func (s *Set) SetConfig(name string, cfg analysis.RunConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.configs[name]; !ok {
		return fmt.Errorf("unknown file: %s", name)
	}
	s.configs[name] = cfg
	return nil
}

// Display returns the presentation state of a file.
func (s *Set) Display(name string) (Display, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.display[name]
	return d.clone(), ok
}

// SetDisplay replaces the presentation state of a file already in the set.
func (s *Set) SetDisplay(name string, d Display) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.display[name]; !ok {
		return fmt.Errorf("unknown file: %s", name)
	}
	s.display[name] = d.clone()
	return nil
}

// Jobs snapshots every record with a copy of its current configuration.
// Later SetConfig calls do not affect the returned jobs.
func (s *Set) Jobs() []analysis.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	jobs := make([]analysis.Job, len(s.records))
	for i, r := range s.records {
		jobs[i] = analysis.Job{
			Name:   r.Name,
			Ext:    r.Ext,
			Load:   r.Content,
			Config: s.configs[r.Name],
		}
	}
	return jobs
}

// Attach records batch outcomes against the files they belong to. Outcomes
// for files no longer in the set are ignored.
func (s *Set) Attach(outcomes []analysis.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range outcomes {
		if _, ok := s.configs[o.Name]; ok {
			s.outcomes[o.Name] = o
		}
	}
}

// Outcome returns the latest attached outcome of a file.
func (s *Set) Outcome(name string) (analysis.Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.outcomes[name]
	return o, ok
}
