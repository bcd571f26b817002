package roster

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"tri-league/internal/rotation"
)

var ErrInvalidRoster = errors.New("invalid_roster")

type Team struct {
	ID      string   `yaml:"id" json:"id"`
	Name    string   `yaml:"name" json:"name"`
	Players []string `yaml:"players" json:"players"`
}

type Roster struct {
	Teams []Team `yaml:"teams" json:"teams"`
}

// Source supplies the three teams of a session's tournament. The first two
// teams start on the field, the third waits.
type Source interface {
	Roster(ctx context.Context, sessionID string) (Roster, error)
}

func (r Roster) Validate() error {
	if len(r.Teams) != 3 {
		return fmt.Errorf("%w: need exactly 3 teams, got %d", ErrInvalidRoster, len(r.Teams))
	}
	seen := map[string]bool{}
	for i, t := range r.Teams {
		id := strings.TrimSpace(t.ID)
		if id == "" {
			return fmt.Errorf("%w: team %d has no id", ErrInvalidRoster, i)
		}
		if seen[id] {
			return fmt.Errorf("%w: duplicate team %q", ErrInvalidRoster, id)
		}
		seen[id] = true
	}
	return nil
}

func (r Roster) InitialAssignment() (rotation.Assignment, error) {
	if err := r.Validate(); err != nil {
		return rotation.Assignment{}, err
	}
	return rotation.NewAssignment([3]rotation.TeamID{
		rotation.TeamID(r.Teams[0].ID),
		rotation.TeamID(r.Teams[1].ID),
		rotation.TeamID(r.Teams[2].ID),
	})
}

func (r Roster) Team(id string) (Team, bool) {
	for _, t := range r.Teams {
		if t.ID == id {
			return t, true
		}
	}
	return Team{}, false
}

// Static serves the same roster to every session.
type Static struct {
	roster Roster
}

func NewStatic(r Roster) (*Static, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &Static{roster: r}, nil
}

// FromNames builds a roster of player-less teams named after their ids.
func FromNames(names []string) (*Static, error) {
	r := Roster{}
	for _, n := range names {
		n = strings.TrimSpace(n)
		r.Teams = append(r.Teams, Team{ID: n, Name: n})
	}
	return NewStatic(r)
}

func (s *Static) Roster(_ context.Context, _ string) (Roster, error) {
	return s.roster, nil
}

// file layout:
//
//	teams:
//	  - id: red
//	    name: Red
//	    players: [Ana, Bo]
//	sessions:
//	  pitch-2:
//	    teams: [...]
type fileRoster struct {
	Teams    []Team            `yaml:"teams"`
	Sessions map[string]Roster `yaml:"sessions"`
}

// File serves rosters from a YAML file, with optional per-session overrides.
type File struct {
	def      Roster
	sessions map[string]Roster
}

func LoadFile(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	return Parse(b)
}

func Parse(b []byte) (*File, error) {
	var raw fileRoster
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRoster, err)
	}
	f := &File{def: Roster{Teams: raw.Teams}, sessions: map[string]Roster{}}
	if err := f.def.Validate(); err != nil {
		return nil, err
	}
	for id, r := range raw.Sessions {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("session %s: %w", id, err)
		}
		f.sessions[id] = r
	}
	return f, nil
}

func (f *File) Roster(_ context.Context, sessionID string) (Roster, error) {
	if r, ok := f.sessions[sessionID]; ok {
		return r, nil
	}
	return f.def, nil
}
