package indicator

import (
	"fmt"

	"github.com/mohamedkhairy/streamta/internal/models"
	"github.com/mohamedkhairy/streamta/internal/storage"
)

// BarField is the stream entry field holding the JSON encoded bar
const BarField = "bar"

// BarProcessorInterface defines the interface for processing bars
type BarProcessorInterface interface {
	ProcessBar(bar *models.Bar1m) error
}

// DecodeBarMessage extracts and validates the bar carried by a stream message.
// Prices may be JSON numbers or strings.
func DecodeBarMessage(msg storage.StreamMessage) (*models.Bar1m, error) {
	raw, ok := msg.Values[BarField]
	if !ok {
		// Try to find any string value (fallback)
		for _, v := range msg.Values {
			if _, isString := v.(string); isString {
				raw = v
				break
			}
		}
	}

	var data []byte
	switch v := raw.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	case nil:
		return nil, fmt.Errorf("no bar data found in message %s", msg.ID)
	default:
		return nil, fmt.Errorf("unexpected bar payload type %T in message %s", raw, msg.ID)
	}

	bar, err := models.ParseBar(data)
	if err != nil {
		return nil, fmt.Errorf("message %s: %w", msg.ID, err)
	}
	return bar, nil
}
