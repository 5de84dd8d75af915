package schemas

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"cryptofolio/src/utils"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts are emitted as JSON numbers; both numbers and strings are accepted on input.
	decimal.MarshalJSONWithoutQuotes = true
}

// problems collects field validation messages.
type problems []string

func (p *problems) add(format string, args ...any) {
	*p = append(*p, fmt.Sprintf(format, args...))
}

func (p *problems) maxLen(field, value string, limit int) {
	if utf8.RuneCountInString(value) > limit {
		p.add("%s must be at most %d characters", field, limit)
	}
}

func (p problems) err() error {
	if len(p) == 0 {
		return nil
	}
	return fmt.Errorf("%s: %w", strings.Join(p, "; "), utils.ErrInvalidArgument)
}
