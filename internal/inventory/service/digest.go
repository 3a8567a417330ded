package service

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"text/template"

	"github.com/stoklog/stoklog-backend/internal/inventory/domain"
	"github.com/stoklog/stoklog-backend/internal/inventory/events"
	"github.com/stoklog/stoklog-backend/pkg/i18n"
)

var digestTemplate = template.Must(template.New("digest").Parse(
	`{{.Greeting}}
{{range .Groups}}
{{.Heading}}
{{range .Alerts}}  - {{.Message}}
{{end}}{{end}}
{{.Footer}}
`))

type digestGroup struct {
	Heading string
	Alerts  []*domain.Alert
}

type digestView struct {
	Greeting string
	Groups   []digestGroup
	Footer   string
}

// ExpiryAlerts keeps the expiring_soon and expired alerts of a run
func ExpiryAlerts(alerts []*domain.Alert) []*domain.Alert {
	var out []*domain.Alert
	for _, a := range alerts {
		if a.Kind.IsExpiry() {
			out = append(out, a)
		}
	}
	return out
}

// RenderDigest builds one tenant digest from its new expiry alerts, grouped
// by warehouse in id order with expired alerts first in each group.
// warehouseNames maps warehouse id to display name; unknown ids render as "#id".
func RenderDigest(locale string, t *domain.Tenant, warehouseNames map[int64]string, alerts []*domain.Alert) (events.Digest, error) {
	loc := i18n.NewLocalizer(locale)

	byWarehouse := make(map[int64][]*domain.Alert)
	var warehouseIDs []int64
	for _, a := range alerts {
		if _, seen := byWarehouse[a.WarehouseID]; !seen {
			warehouseIDs = append(warehouseIDs, a.WarehouseID)
		}
		byWarehouse[a.WarehouseID] = append(byWarehouse[a.WarehouseID], a)
	}
	sort.Slice(warehouseIDs, func(i, j int) bool { return warehouseIDs[i] < warehouseIDs[j] })

	view := digestView{
		Greeting: loc.T("digest.greeting", map[string]string{"tenant": t.Name}),
		Footer:   loc.T("digest.footer"),
	}
	ids := make([]int64, 0, len(alerts))
	for _, whID := range warehouseIDs {
		group := byWarehouse[whID]
		sort.SliceStable(group, func(i, j int) bool {
			if group[i].Kind != group[j].Kind {
				return group[i].Kind == domain.KindExpired
			}
			return group[i].ID < group[j].ID
		})

		name, ok := warehouseNames[whID]
		if !ok {
			name = fmt.Sprintf("#%d", whID)
		}
		view.Groups = append(view.Groups, digestGroup{
			Heading: loc.T("digest.warehouse", map[string]string{"warehouse": name}),
			Alerts:  group,
		})
		for _, a := range group {
			ids = append(ids, a.ID)
		}
	}

	var body bytes.Buffer
	if err := digestTemplate.Execute(&body, view); err != nil {
		return events.Digest{}, fmt.Errorf("failed to render digest for tenant %d: %w", t.ID, err)
	}

	return events.Digest{
		TenantID:   t.ID,
		Recipients: t.NotificationEmails,
		Subject: loc.T("digest.subject", map[string]string{
			"tenant": t.Name,
			"count":  strconv.Itoa(len(alerts)),
		}),
		Body:     body.String(),
		AlertIDs: ids,
	}, nil
}
