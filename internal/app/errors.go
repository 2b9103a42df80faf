package service

import (
	"errors"

	"github.com/okian/crewscore/internal/adapters/repository"
)

// Sentinel kinds for service errors.
var (
	ErrNotStarted   = errors.New("service not started")
	ErrInvalidLimit = repository.ErrInvalidLimit
)
