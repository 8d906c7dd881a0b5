package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dmizin/computer-inventory/internal/model"
	"github.com/dmizin/computer-inventory/internal/store"
)

// Recorder appends change records to the audit log.
type Recorder struct {
	repository store.Repository
	logger     *logrus.Entry
}

func NewRecorder(repository store.Repository, logger *logrus.Logger) *Recorder {
	return &Recorder{
		repository: repository,
		logger:     logger.WithField("component", "audit"),
	}
}

// Record persists one audit entry. The change payload is normalized into
// JSON-safe values first, identifier and timestamp objects cannot be stored
// as-is and are string serialized.
func (r *Recorder) Record(ctx context.Context, action, resourceType string, resourceID uuid.UUID, changes map[string]interface{}, apiKeyID *uuid.UUID) error {
	entry := &model.AuditLog{
		ID:           uuid.New(),
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Changes:      model.Specs(normalizeMap(changes)),
		APIKeyID:     apiKeyID,
	}

	if err := r.repository.CreateAuditLog(ctx, entry); err != nil {
		return err
	}

	r.logger.WithFields(logrus.Fields{
		"action":       action,
		"resourceType": resourceType,
		"resourceID":   resourceID,
	}).Debug("audit entry recorded")

	return nil
}

func normalizeMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}

	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = normalize(v)
	}

	return out
}

// normalize rewrites values the audit store cannot hold directly. UUIDs and
// timestamps become strings, containers are walked recursively.
func normalize(v interface{}) interface{} {
	switch value := v.(type) {
	case uuid.UUID:
		return value.String()
	case *uuid.UUID:
		if value == nil {
			return nil
		}

		return value.String()
	case time.Time:
		return value.UTC().Format(time.RFC3339)
	case *time.Time:
		if value == nil {
			return nil
		}

		return value.UTC().Format(time.RFC3339)
	case map[string]interface{}:
		return normalizeMap(value)
	case model.Specs:
		return normalizeMap(value)
	case []interface{}:
		out := make([]interface{}, 0, len(value))
		for _, item := range value {
			out = append(out, normalize(item))
		}

		return out
	case []uuid.UUID:
		out := make([]interface{}, 0, len(value))
		for _, item := range value {
			out = append(out, item.String())
		}

		return out
	case *string:
		if value == nil {
			return nil
		}

		return *value
	default:
		return value
	}
}
