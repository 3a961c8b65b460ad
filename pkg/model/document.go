package model

import (
	"time"
)

type Document struct {
	Id        string    `json:"id" validate:"required"`
	LessonId  string    `json:"lesson_id"`
	Title     string    `json:"title"`
	Content   []byte    `json:"content,omitempty"`
	Revision  int64     `json:"revision"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewDocument(id string) Document {
	return Document{
		Id:        id,
		Revision:  1,
		UpdatedAt: time.Now().UTC(),
	}
}
