package commands

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/Sumatoshi-tech/trustfang/pkg/events"
)

// loadEventsFile reads a JSON array of commit event envelopes. In strict
// mode each envelope is checked against the embedded schema and invalid
// envelopes are dropped, counted, and logged at warn, the same per-event
// skip policy the engine applies to malformed authors. The returned count
// is the number of envelopes dropped that way.
func loadEventsFile(path string, strict bool, logger *slog.Logger) ([]events.Envelope, int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("read events file: %w", err)
	}

	if strict {
		batch, skipped, err := decodeStrict(raw, logger)
		if err != nil {
			return nil, 0, fmt.Errorf("decode events file %s: %w", path, err)
		}

		return batch, skipped, nil
	}

	batch, err := events.DecodeBatch(raw)
	if err != nil {
		return nil, 0, fmt.Errorf("decode events file %s: %w", path, err)
	}

	return batch, 0, nil
}

func decodeStrict(raw []byte, logger *slog.Logger) ([]events.Envelope, int, error) {
	var elements []json.RawMessage

	err := json.Unmarshal(raw, &elements)
	if err != nil {
		return nil, 0, err
	}

	validator, err := events.NewValidator()
	if err != nil {
		return nil, 0, err
	}

	batch := make([]events.Envelope, 0, len(elements))
	skipped := 0

	for i, element := range elements {
		err = validator.Validate(element)
		if err != nil {
			skipped++

			logger.Warn("skipping schema-invalid envelope", "index", i, "error", err)

			continue
		}

		var env events.Envelope

		err = json.Unmarshal(element, &env)
		if err != nil {
			return nil, 0, fmt.Errorf("envelope %d: %w", i, err)
		}

		batch = append(batch, env)
	}

	return batch, skipped, nil
}
