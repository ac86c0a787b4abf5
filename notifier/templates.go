package notifier

import (
	"bytes"
	"fmt"
	"text/template"

	"storefront-service/models"
)

// Template keys.
const (
	TemplateOrderConfirmed = "order_confirmed"
	TemplateAccepted       = "order_accepted"
	TemplateRejected       = "order_rejected"
	TemplatePreparing      = "order_preparing"
	TemplateOutForDelivery = "order_out_for_delivery"
	TemplateDelivered      = "order_delivered"
	TemplateCancelled      = "order_cancelled"
	TemplateStatusUpdate   = "order_status_update"
	TemplateAdminNewOrder  = "admin_new_order"
)

// Params are the values a template may interpolate.
type Params struct {
	StoreName    string `json:"store_name"`
	CustomerName string `json:"customer_name"`
	OrderNumber  string `json:"order_number"`
	Total        string `json:"total"`
	Status       string `json:"status"`
	Barangay     string `json:"barangay,omitempty"`
	Phone        string `json:"phone,omitempty"`
	ItemCount    int    `json:"item_count"`
}

var templateSources = map[string]string{
	TemplateOrderConfirmed: "{{.StoreName}}: Hi {{.CustomerName}}, we received your order {{.OrderNumber}} ({{.Total}}, cash on delivery). We will text you once it is accepted.",
	TemplateAccepted:       "{{.StoreName}}: Your order {{.OrderNumber}} has been accepted and will be prepared shortly.",
	TemplateRejected:       "{{.StoreName}}: Sorry {{.CustomerName}}, we could not accept order {{.OrderNumber}}. Please contact us for details.",
	TemplatePreparing:      "{{.StoreName}}: Your order {{.OrderNumber}} is being prepared.",
	TemplateOutForDelivery: "{{.StoreName}}: Your order {{.OrderNumber}} is out for delivery. Please prepare {{.Total}}.",
	TemplateDelivered:      "{{.StoreName}}: Your order {{.OrderNumber}} has been delivered. Thank you for shopping with us!",
	TemplateCancelled:      "{{.StoreName}}: Your order {{.OrderNumber}} has been cancelled.",
	TemplateStatusUpdate:   "{{.StoreName}}: Your order {{.OrderNumber}} is now {{.Status}}.",
	TemplateAdminNewOrder:  "New order {{.OrderNumber}} from {{.CustomerName}} ({{.Phone}}), {{.Barangay}}: {{.ItemCount}} item(s), {{.Total}}.",
}

var statusTemplates = map[models.OrderStatus]string{
	models.OrderStatusAccepted:       TemplateAccepted,
	models.OrderStatusRejected:       TemplateRejected,
	models.OrderStatusPreparing:      TemplatePreparing,
	models.OrderStatusOutForDelivery: TemplateOutForDelivery,
	models.OrderStatusDelivered:      TemplateDelivered,
	models.OrderStatusCancelled:      TemplateCancelled,
}

// TemplateForStatus returns the customer template for a status change,
// falling back to the generic update message.
func TemplateForStatus(status models.OrderStatus) string {
	if key, ok := statusTemplates[status]; ok {
		return key
	}
	return TemplateStatusUpdate
}

// Templates renders the parsed message templates.
type Templates struct {
	set map[string]*template.Template
}

func NewTemplates() (*Templates, error) {
	set := make(map[string]*template.Template, len(templateSources))
	for key, src := range templateSources {
		t, err := template.New(key).Option("missingkey=error").Parse(src)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", key, err)
		}
		set[key] = t
	}
	return &Templates{set: set}, nil
}

// MustTemplates is NewTemplates for the built-in set, which always parses.
func MustTemplates() *Templates {
	t, err := NewTemplates()
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Templates) Render(key string, params Params) (string, error) {
	tmpl, ok := t.set[key]
	if !ok {
		return "", fmt.Errorf("unknown template %q", key)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, params); err != nil {
		return "", fmt.Errorf("template render failed: %w", err)
	}
	return buf.String(), nil
}
