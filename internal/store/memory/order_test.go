package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aoideee/libraryhub/internal/data"
)

func Test_Delete_ForgetsInsertionOrder(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := New()
	models := store.Models()

	book := &data.Book{Title: "Kindred", Quantity: 1, AvailableQuantity: 1}
	require.NoError(t, models.Books.Insert(ctx, book))
	member := &data.Member{Name: "Dana", Email: "dana@example.com"}
	require.NoError(t, models.Members.Insert(ctx, member))
	require.Len(t, store.inserted, 2)

	// act
	require.NoError(t, models.Books.Delete(ctx, book.ID))
	require.NoError(t, models.Members.Delete(ctx, member.ID))

	// assert
	assert.Empty(t, store.inserted)
}
