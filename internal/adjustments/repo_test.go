package adjustments

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pinoygym/StarterBuildKit-Zapweb.app-sub006/internal/platform/db"
)

func TestTxLockTimeout(t *testing.T) {
	r := NewRepository(nil, 0)
	require.Equal(t, db.DefaultLockTimeout, r.txLockTimeout())

	r = NewRepository(nil, time.Second)
	require.Equal(t, time.Second, r.txLockTimeout())
}
