package domain

import "time"

// Person is anyone known to the ledger: riders, drivers and bank account holders.
// Email is the natural key.
type Person struct {
	ID        int64
	Name      string
	Email     string
	Phone     string
	CreatedAt time.Time
}
