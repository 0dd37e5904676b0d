package openlibrary

import (
	"fmt"

	"breads/dump"
)

func MapAuthor(obj dump.Object) (*Author, error) {
	key, err := obj.String("key")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMissingKey, err)
	}

	return &Author{
		ID:           stripKey(key, AuthorPrefix),
		Name:         obj.OptString("name"),
		PersonalName: obj.OptString("personal_name"),
	}, nil
}
