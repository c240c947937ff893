package domain

// Location - узел пространственного графа. Хранит только ID сущностей
// (чистый ID-режим: никаких взаимных указателей, каскады ходят по индексам).
type Location struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	Entities []EntityID `json:"entities"`

	// path_id -> ID локации назначения (граф структурно есть, обход - забота коллабораторов)
	Connections map[string]string `json:"connections,omitempty"`
}

func (l *Location) AddEntityID(id EntityID) bool {
	for _, e := range l.Entities {
		if e == id {
			return false
		}
	}
	l.Entities = append(l.Entities, id)
	return true
}

func (l *Location) RemoveEntityID(id EntityID) bool {
	for i, e := range l.Entities {
		if e == id {
			l.Entities = append(l.Entities[:i], l.Entities[i+1:]...)
			return true
		}
	}
	return false
}

func (l *Location) Contains(id EntityID) bool {
	for _, e := range l.Entities {
		if e == id {
			return true
		}
	}
	return false
}
