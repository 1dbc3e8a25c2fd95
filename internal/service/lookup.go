package service

import (
	"database/sql"
	"errors"

	"github.com/AdamBeresnev/art-battle/internal/apperr"
)

// lookupErr maps a failed single-row read to NotFound or Storage.
func lookupErr(err error, code apperr.Code, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound(code, msg, err)
	}
	return apperr.Storage(msg, err)
}
