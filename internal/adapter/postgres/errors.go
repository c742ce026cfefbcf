package postgres

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/orgvault/orgvault/internal/domain"
)

// mapError translates pgx and PostgreSQL errors into domain sentinels so
// callers can wrap the result with fmt.Errorf("...: %w", ...) and the HTTP
// layer can match with errors.Is. Unrecognized errors pass through.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgerrcode.UniqueViolation, pgerrcode.DuplicateTable:
		return domain.ErrConflict
	case pgerrcode.UndefinedTable:
		return domain.ErrNotFound
	case pgerrcode.ConnectionException,
		pgerrcode.ConnectionFailure,
		pgerrcode.ConnectionDoesNotExist,
		pgerrcode.SQLClientUnableToEstablishSQLConnection,
		pgerrcode.CannotConnectNow,
		pgerrcode.TooManyConnections:
		return domain.ErrStoreUnavailable
	}
	return err
}
