package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNilSnapshot    = errors.New("context snapshot is nil")
	ErrInvalidContact = errors.New("contact id is empty")
	ErrInvalidCompany = errors.New("company id is empty")
)

// Snapshot is the read-only context bundle assembled fresh for every turn.
// - Identity: Contact + Company
// - Personalisation: Profile (completion, preferred name, stored facts)
// - Continuity: RecentHistory (oldest -> newest) + AgentHint (sticky routing override)
type Snapshot struct {
	Contact       Contact        `json:"contact"`
	Profile       Profile        `json:"userProfile"`
	Company       Company        `json:"company"`
	RecentHistory []HistoryEntry `json:"recentHistory,omitempty"`
	AgentHint     string         `json:"agentHint,omitempty"`

	FetchedAt time.Time `json:"-"`
}

type Contact struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type Profile struct {
	CompletionPct int            `json:"completion"`
	PreferredName string         `json:"preferredName,omitempty"`
	Facts         map[string]any `json:"facts,omitempty"`
}

type Company struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Industry string `json:"industry,omitempty"`
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type HistoryEntry struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	AgentType string    `json:"agentType,omitempty"`
	HasImage  bool      `json:"hasImage,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

/* ----------------------------- Snapshot helpers ----------------------------- */

// Empty returns a snapshot carrying only identity, used when the backend knows nothing yet.
func Empty(contactID, companyID string, now time.Time) *Snapshot {
	return &Snapshot{
		Contact:   Contact{ID: contactID},
		Company:   Company{ID: companyID},
		Profile:   Profile{Facts: map[string]any{}},
		FetchedAt: now.UTC(),
	}
}

// Decode parses the backend RPC payload into a snapshot.
func Decode(payload []byte, now time.Time) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal context snapshot: %w", err)
	}
	snap.normalize()
	snap.FetchedAt = now.UTC()
	return &snap, nil
}

func (s *Snapshot) normalize() {
	if s.Profile.Facts == nil {
		s.Profile.Facts = map[string]any{}
	}
	if s.Profile.CompletionPct < 0 {
		s.Profile.CompletionPct = 0
	}
	if s.Profile.CompletionPct > 100 {
		s.Profile.CompletionPct = 100
	}
	s.AgentHint = strings.ToLower(strings.TrimSpace(s.AgentHint))

	kept := s.RecentHistory[:0]
	for _, h := range s.RecentHistory {
		if strings.TrimSpace(h.Content) == "" && !h.HasImage {
			continue
		}
		switch strings.ToLower(string(h.Role)) {
		case "assistant", "model", "bot":
			h.Role = RoleAssistant
		default:
			h.Role = RoleUser
		}
		kept = append(kept, h)
	}
	s.RecentHistory = kept
}

func (s *Snapshot) Validate() error {
	if s == nil {
		return ErrNilSnapshot
	}
	if strings.TrimSpace(s.Contact.ID) == "" {
		return ErrInvalidContact
	}
	if strings.TrimSpace(s.Company.ID) == "" {
		return ErrInvalidCompany
	}
	return nil
}

// Completion is nil-safe; a missing snapshot counts as an empty profile.
func (s *Snapshot) Completion() int {
	if s == nil {
		return 0
	}
	return s.Profile.CompletionPct
}

func (s *Snapshot) ProfileIncomplete(threshold int) bool {
	return s.Completion() < threshold
}

// DisplayName prefers the stored preferred name over the contact name.
func (s *Snapshot) DisplayName() string {
	if s == nil {
		return ""
	}
	if name := strings.TrimSpace(s.Profile.PreferredName); name != "" {
		return name
	}
	fields := strings.Fields(s.Contact.Name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func (s *Snapshot) Hint() string {
	if s == nil {
		return ""
	}
	return s.AgentHint
}

// WithHint returns a copy carrying the given sticky hint; the receiver is left untouched.
func (s *Snapshot) WithHint(hint string) *Snapshot {
	if s == nil {
		return nil
	}
	cp := *s
	cp.AgentHint = strings.ToLower(strings.TrimSpace(hint))
	return &cp
}

// LastHistory returns at most n trailing entries, oldest first.
func (s *Snapshot) LastHistory(n int) []HistoryEntry {
	if s == nil || n <= 0 || len(s.RecentHistory) == 0 {
		return nil
	}
	if len(s.RecentHistory) <= n {
		return s.RecentHistory
	}
	return s.RecentHistory[len(s.RecentHistory)-n:]
}
