package category

// Category groups posts by topic and carries its own subscriber list.
type Category struct {
	ID   int64
	Name string
}
