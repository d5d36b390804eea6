package database

import (
	"fmt"
	"testing"

	"bazar/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersistentModels_ReferencedTablesFirst(t *testing.T) {
	all := PersistentModels()
	require.Len(t, all, 6)

	index := func(target interface{}) int {
		want := fmt.Sprintf("%T", target)
		for i, m := range all {
			if fmt.Sprintf("%T", m) == want {
				return i
			}
		}
		return -1
	}

	assert.Less(t, index(&models.User{}), index(&models.Listing{}))
	assert.Less(t, index(&models.Listing{}), index(&models.Image{}))
}
