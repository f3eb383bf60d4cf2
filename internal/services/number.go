package services

import (
	"fmt"
	"time"

	"github.com/diewo77/stock-app/internal/store"
)

// FormatOrderNumber renders the human-readable order number, e.g.
// CMD-2024-007. The sequence is padded to three digits and widens on its own
// past 999.
func FormatOrderNumber(year, seq int) string {
	return fmt.Sprintf("CMD-%d-%03d", year, seq)
}

// nextOrderNumber assigns the next number for the tenant inside the order
// creation transaction. The per-(entreprise, year) counter replaces the old
// count-the-orders scheme, which handed the same number to two creators
// racing on the same in-memory count.
func nextOrderNumber(tx *store.Tx, entrepriseID uint, at time.Time) (string, error) {
	year := at.Year()
	seq, err := tx.NextSequence(entrepriseID, year)
	if err != nil {
		return "", err
	}
	return FormatOrderNumber(year, seq), nil
}
