package domain

// Driver is a Person who can be booked for rides.
// Available is false exactly while a requested ride references the driver.
type Driver struct {
	ID        int64
	PersonID  int64
	Name      string
	Email     string
	Available bool
}
