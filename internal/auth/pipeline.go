package auth

import (
	"fmt"
	"time"
)

// pendingPassword carries a password through the save pipeline. After the
// pipeline runs, plaintext and confirm are cleared and hash is set.
type pendingPassword struct {
	plaintext string
	confirm   string
	creating  bool

	hash      string
	changedAt time.Time
}

type passwordStep func(s *Service, p *pendingPassword) error

// passwordPipeline runs before any password is persisted, in this order.
var passwordPipeline = []passwordStep{
	validatePassword,
	hashPassword,
	stampPasswordChange,
}

func (s *Service) runPasswordPipeline(p *pendingPassword) error {
	for _, step := range passwordPipeline {
		if err := step(s, p); err != nil {
			return err
		}
	}
	return nil
}

func validatePassword(_ *Service, p *pendingPassword) error {
	switch {
	case p.plaintext == "":
		return ErrPasswordRequired
	case len(p.plaintext) < minPasswordLength:
		return ErrPasswordTooShort
	case p.plaintext != p.confirm:
		return ErrPasswordMismatch
	}
	return nil
}

func hashPassword(s *Service, p *pendingPassword) error {
	hash, err := s.hasher.Hash(p.plaintext)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	p.hash = hash
	p.plaintext = ""
	p.confirm = ""
	return nil
}

// stampPasswordChange records the change one second in the past so a token
// issued in the same second as the change is still accepted.
func stampPasswordChange(s *Service, p *pendingPassword) error {
	if p.creating {
		return nil
	}
	p.changedAt = s.now().Add(-time.Second)
	return nil
}
