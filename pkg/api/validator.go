package api

import "errors"

// Validator - интерфейс, который могут реализовать DTO
type Validator interface {
	Validate() error
}

func (p ActPayload) Validate() error {
	if p.Verb == "" {
		return errors.New("verb is required")
	}
	if p.TargetID == "" {
		return errors.New("targetId is required")
	}
	return nil
}
