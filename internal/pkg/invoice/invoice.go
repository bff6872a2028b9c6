// Package invoice 发票号生成与收据渲染
package invoice

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Generator 发票号格式为 INV + YYMM + snowflake id，单节点内单调且唯一
type Generator struct {
	node *snowflake.Node
	now  func() time.Time
}

func NewGenerator(nodeID int64) (*Generator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("init snowflake node: %w", err)
	}
	return &Generator{node: node, now: time.Now}, nil
}

// Next 生成下一个发票号
func (g *Generator) Next() string {
	return "INV" + g.now().Format("0601") + g.node.Generate().String()
}

// Receipt 收据内容
type Receipt struct {
	InvoiceNumber     string
	CustomerName      string
	CustomerEmail     string
	PlanName          string
	Currency          string
	Price             decimal.Decimal
	Discount          decimal.Decimal
	BaseAmount        decimal.Decimal
	GSTAmount         decimal.Decimal
	TotalAmount       decimal.Decimal
	RazorpayPaymentID string
	PaidAt            time.Time
	ExpiresAt         time.Time
}

var receiptTmpl = template.Must(template.New("receipt").Funcs(template.FuncMap{
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
	"date":  func(t time.Time) string { return t.Format("02 Jan 2006") },
}).Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Receipt {{.InvoiceNumber}}</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #16a34a;">Payment Receipt</h2>
        <p>Invoice: <strong>{{.InvoiceNumber}}</strong><br>Date: {{date .PaidAt}}</p>
        <p>Billed to: {{.CustomerName}} &lt;{{.CustomerEmail}}&gt;</p>
        <table style="width: 100%; border-collapse: collapse;">
            <tr><td>{{.PlanName}}</td><td style="text-align: right;">{{.Currency}} {{money .Price}}</td></tr>
            {{- if .Discount.IsPositive}}
            <tr><td>Discount</td><td style="text-align: right;">- {{.Currency}} {{money .Discount}}</td></tr>
            {{- end}}
            <tr><td>Subtotal</td><td style="text-align: right;">{{.Currency}} {{money .BaseAmount}}</td></tr>
            <tr><td>GST</td><td style="text-align: right;">{{.Currency}} {{money .GSTAmount}}</td></tr>
            <tr><td><strong>Total</strong></td><td style="text-align: right;"><strong>{{.Currency}} {{money .TotalAmount}}</strong></td></tr>
        </table>
        <p>Payment ID: {{.RazorpayPaymentID}}<br>Valid until: {{date .ExpiresAt}}</p>
        <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 20px 0;">
        <p style="color: #6b7280; font-size: 12px;">This receipt was generated automatically.</p>
    </div>
</body>
</html>
`))

// Render 渲染 HTML 收据
func Render(r *Receipt) ([]byte, error) {
	var buf bytes.Buffer
	if err := receiptTmpl.Execute(&buf, r); err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}
	return buf.Bytes(), nil
}
