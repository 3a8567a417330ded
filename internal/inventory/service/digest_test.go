package service_test

import (
	"testing"

	"github.com/stoklog/stoklog-backend/internal/inventory/domain"
	"github.com/stoklog/stoklog-backend/internal/inventory/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpiryAlerts(t *testing.T) {
	in := []*domain.Alert{
		alert(1, 1, domain.KindOutOfStock, ""),
		alert(2, 1, domain.KindExpired, ""),
		alert(3, 1, domain.KindOverstock, ""),
		alert(4, 1, domain.KindExpiringSoon, ""),
	}
	out := service.ExpiryAlerts(in)
	require.Len(t, out, 2)
	assert.Equal(t, int64(2), out[0].ID)
	assert.Equal(t, int64(4), out[1].ID)
}

func TestRenderDigest_Indonesian(t *testing.T) {
	tenant := tenantRow(5, "Apotek Sehat")
	d, err := service.RenderDigest("id", tenant, map[int64]string{9: "Gudang Timur"}, []*domain.Alert{
		alert(1, 9, domain.KindExpired, "Batch Paracetamol kedaluwarsa"),
	})
	require.NoError(t, err)

	assert.Equal(t, "[Apotek Sehat] 1 notifikasi kedaluwarsa", d.Subject)
	assert.Contains(t, d.Body, "Notifikasi kedaluwarsa untuk Apotek Sehat")
	assert.Contains(t, d.Body, "Gudang: Gudang Timur")
	assert.Contains(t, d.Body, "  - Batch Paracetamol kedaluwarsa")
	assert.Equal(t, tenant.NotificationEmails, d.Recipients)
}
