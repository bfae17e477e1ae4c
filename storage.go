package main

import (
	"fmt"

	"github.com/quasilyte/gdata/v2"
	"gopkg.in/yaml.v3"
)

const (
	rosterObject   = "roster"
	rosterProperty = "colony"
)

// rosterFile is the persisted shape of the colony. NextCat keeps adopted ids
// unique across restarts.
type rosterFile struct {
	NextCat uint64 `yaml:"nextCat"`
	Cats    []Cat  `yaml:"cats"`
}

// RosterStore persists the colony roster in the platform-local app data
// store. A nil manager means degraded mode: the server runs, nothing
// persists.
type RosterStore struct {
	manager *gdata.Manager
}

// newRosterStore opens the local store under appName. An empty appName or an
// open failure yields a degraded store rather than an error; losing
// persistence should never stop the yard.
func newRosterStore(appName string) *RosterStore {
	if appName == "" {
		return &RosterStore{}
	}
	manager, err := gdata.Open(gdata.Config{AppName: appName})
	if err != nil {
		return &RosterStore{}
	}
	return &RosterStore{manager: manager}
}

// Persistent reports whether saves actually reach disk.
func (s *RosterStore) Persistent() bool {
	return s != nil && s.manager != nil
}

// Save serializes the roster and writes it to the store.
func (s *RosterStore) Save(roster rosterFile) error {
	if !s.Persistent() {
		return nil
	}
	data, err := yaml.Marshal(roster)
	if err != nil {
		return fmt.Errorf("failed to serialize roster: %w", err)
	}
	if err := s.manager.SaveObjectProp(rosterObject, rosterProperty, data); err != nil {
		return fmt.Errorf("failed to save roster: %w", err)
	}
	return nil
}

// Load reads the persisted roster. The second return value is false when
// nothing was saved yet (or the store is degraded).
func (s *RosterStore) Load() (rosterFile, bool, error) {
	var roster rosterFile
	if !s.Persistent() {
		return roster, false, nil
	}
	if !s.manager.ObjectPropExists(rosterObject, rosterProperty) {
		return roster, false, nil
	}
	data, err := s.manager.LoadObjectProp(rosterObject, rosterProperty)
	if err != nil {
		return roster, false, fmt.Errorf("failed to load roster: %w", err)
	}
	if err := yaml.Unmarshal(data, &roster); err != nil {
		return roster, false, fmt.Errorf("failed to parse roster: %w", err)
	}
	return roster, true, nil
}
