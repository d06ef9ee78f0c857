package domain

// Location is a place identified by its address string.
type Location struct {
	ID      int64
	Address string
}

// Category is a ride category such as Standard or XL. Categories are reference data.
type Category struct {
	ID   int64
	Name string
}
