// FilePath: internal/models/models.layout.go
package models

import "time"

// Layout is a named, ordered collection of widgets representing one dashboard
// screen. Exactly one layout in the collection is marked default; the default
// layout is created at first run and can never be deleted. Widget order is
// display order.
type Layout struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name" writexs:"user,admin,system"`
	Description string    `json:"description,omitempty" db:"description" writexs:"user,admin,system"`
	AdminNotes  string    `json:"admin_notes,omitempty" db:"admin_notes" readxs:"admin,system" writexs:"admin,system"`
	IsDefault   bool      `json:"is_default" db:"is_default"`
	Widgets     []*Widget `json:"widgets"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Clone returns a deep copy of the layout including its widgets
func (l *Layout) Clone() *Layout {
	c := *l
	c.Widgets = make([]*Widget, len(l.Widgets))
	for i, w := range l.Widgets {
		c.Widgets[i] = w.Clone()
	}
	return &c
}

// Widget returns the widget with the given id, or nil
func (l *Layout) Widget(id string) *Widget {
	for _, w := range l.Widgets {
		if w.ID == id {
			return w
		}
	}
	return nil
}
