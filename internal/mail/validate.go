package mail

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var composerValidator = validator.New()

// ValidateCreate checks a composer request and returns a field-keyed error
// map. An empty map means the request is valid. Validation problems are
// reported through the map, never as an error value.
func ValidateCreate(req CreateRequest, now time.Time) map[string]string {
	fields := make(map[string]string)

	if err := composerValidator.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				switch fe.Field() {
				case "Title":
					fields["title"] = "title is required"
				case "Content":
					fields["content"] = "content is required"
				case "Category":
					fields["category"] = "unknown category"
				case "Priority":
					fields["priority"] = "unknown priority"
				}
			}
		} else {
			fields["request"] = "invalid request"
		}
	}

	if strings.TrimSpace(req.Title) == "" {
		fields["title"] = "title is required"
	}
	if strings.TrimSpace(req.Content) == "" {
		fields["content"] = "content is required"
	}
	if !req.IsGlobal && len(req.Recipients) == 0 {
		fields["recipients"] = "at least one recipient is required unless the message is global"
	}
	if req.ExpiresAt != nil && !req.ExpiresAt.After(now) {
		fields["expiresAt"] = "expiry must be in the future"
	}

	return fields
}
