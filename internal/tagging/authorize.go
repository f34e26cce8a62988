package tagging

import (
	"context"

	"github.com/ethereum-tag-service/ets-server/internal/domain"
	"github.com/ethereum-tag-service/ets-server/internal/errors"
)

// AuthorizationOracle answers relayer-status questions for the engine.
type AuthorizationOracle interface {
	// IsActiveRelayer reports whether addr is a registered relayer that is
	// neither locked nor paused.
	IsActiveRelayer(ctx context.Context, addr domain.Address) (bool, error)
}

// OracleFunc adapts a function to AuthorizationOracle.
type OracleFunc func(ctx context.Context, addr domain.Address) (bool, error)

// IsActiveRelayer calls f.
func (f OracleFunc) IsActiveRelayer(ctx context.Context, addr domain.Address) (bool, error) {
	return f(ctx, addr)
}

// AuthorizeRelayer rejects callers that are not active, unpaused relayers.
func AuthorizeRelayer(ctx context.Context, oracle AuthorizationOracle, caller domain.Address) error {
	ok, err := oracle.IsActiveRelayer(ctx, caller)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "relayer lookup failed")
	}
	if !ok {
		return errors.Forbiddenf("%s is not an active relayer", caller)
	}
	return nil
}

func checkAttribution(record *domain.TaggingRecord, caller, tagger domain.Address) error {
	if record.Relayer != caller {
		return errors.Forbidden("caller is not the record's relayer")
	}
	if record.Tagger != tagger {
		return errors.Forbidden("tagger does not match the record's tagger")
	}
	return nil
}
