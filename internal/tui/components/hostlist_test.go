package components

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHostList(t *testing.T) {
	t.Parallel()

	list := NewHostList([]string{"a", "b"})
	require.Equal(t, 2, list.Len())

	updated := list.Update(1, func(e *HostEntry) {
		e.Status = HostDone
		e.Total = 12
	})
	require.Equal(t, HostPending, list.Entries()[1].Status, "update must not alias the original list")
	require.True(t, updated.Entries()[1].Finished())
	require.Equal(t, 12, updated.Entries()[1].Total)

	same := updated.Update(7, func(e *HostEntry) { e.Status = HostFailed })
	require.Equal(t, updated.Entries(), same.Entries())

	entries := updated.Entries()
	entries[0].Which = "mutated"
	require.Equal(t, "a", updated.Entries()[0].Which)
}
