package email

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strconv"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/onceloved/storefront/internal/models"
)

var seoul = time.FixedZone("KST", 9*60*60)

// Shop identifies the sender in mail bodies.
type Shop struct {
	Name string
	URL  string
}

type OrderMail struct {
	Shop         Shop
	CustomerName string
	OrderNumber  string
	OrderDate    string
	Items        []MailItem
	TotalAmount  string
	ShippingFee  string
	FinalAmount  string
}

type MailItem struct {
	Name     string
	Quantity int
	Amount   string
}

type ReturnMail struct {
	Shop         Shop
	CustomerName string
	OrderNumber  string
	Reason       string
	RequestedAt  string
	RefundAmount string
}

type template struct {
	html *htmltemplate.Template
	text *texttemplate.Template
}

type Renderer struct {
	templates map[string]template
}

const (
	TemplateOrderConfirmation = "order_confirmation"
	TemplateReturnReceived    = "return_received"
	TemplateReturnRefunded    = "return_refunded"
)

func NewRenderer() (*Renderer, error) {
	sources := map[string]struct{ subject, html, text string }{
		TemplateOrderConfirmation: {"[{{.Shop.Name}}] 주문이 확인되었습니다 ({{.OrderNumber}})", orderConfirmationHTML, orderConfirmationText},
		TemplateReturnReceived:    {"[{{.Shop.Name}}] 반품 신청이 접수되었습니다 ({{.OrderNumber}})", returnReceivedHTML, returnReceivedText},
		TemplateReturnRefunded:    {"[{{.Shop.Name}}] 반품 환불이 완료되었습니다 ({{.OrderNumber}})", returnRefundedHTML, returnRefundedText},
	}

	templates := make(map[string]template, len(sources))
	for name, src := range sources {
		html, err := htmltemplate.New(name + "_html").Parse(src.html)
		if err != nil {
			return nil, fmt.Errorf("failed to parse HTML template %s: %w", name, err)
		}
		text, err := texttemplate.New(name + "_text").Parse(src.text)
		if err != nil {
			return nil, fmt.Errorf("failed to parse text template %s: %w", name, err)
		}
		// Subjects are plain text headers.
		if _, err := text.New("subject").Parse(src.subject); err != nil {
			return nil, fmt.Errorf("failed to parse subject template %s: %w", name, err)
		}
		templates[name] = template{html: html, text: text}
	}
	return &Renderer{templates: templates}, nil
}

func (r *Renderer) Render(name, to string, data any) (*Email, error) {
	tmpl, ok := r.templates[name]
	if !ok {
		return nil, fmt.Errorf("unknown email template: %s", name)
	}

	var subject, html, text bytes.Buffer
	if err := tmpl.text.ExecuteTemplate(&subject, "subject", data); err != nil {
		return nil, fmt.Errorf("failed to render subject: %w", err)
	}
	if err := tmpl.html.Execute(&html, data); err != nil {
		return nil, fmt.Errorf("failed to render HTML template: %w", err)
	}
	if err := tmpl.text.Execute(&text, data); err != nil {
		return nil, fmt.Errorf("failed to render text template: %w", err)
	}

	return &Email{
		To:      to,
		Subject: strings.TrimSpace(subject.String()),
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}

func NewOrderMail(shop Shop, customerName string, order *models.Order) OrderMail {
	items := make([]MailItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, MailItem{
			Name:     item.Name,
			Quantity: item.Quantity,
			Amount:   FormatWon(item.Price * int64(item.Quantity)),
		})
	}
	return OrderMail{
		Shop:         shop,
		CustomerName: customerName,
		OrderNumber:  order.OrderNumber,
		OrderDate:    order.CreatedAt.In(seoul).Format("2006년 1월 2일 15:04"),
		Items:        items,
		TotalAmount:  FormatWon(order.TotalAmount),
		ShippingFee:  FormatWon(order.ShippingFee),
		FinalAmount:  FormatWon(order.FinalAmount),
	}
}

func NewReturnMail(shop Shop, customerName, orderNumber string, ret *models.ReturnRequest) ReturnMail {
	return ReturnMail{
		Shop:         shop,
		CustomerName: customerName,
		OrderNumber:  orderNumber,
		Reason:       ret.Reason,
		RequestedAt:  ret.RequestedAt.In(seoul).Format("2006년 1월 2일 15:04"),
		RefundAmount: FormatWon(ret.RefundAmount),
	}
}

// FormatWon renders an amount as "52,500원".
func FormatWon(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	return sign + b.String() + "원"
}

const orderConfirmationText = `{{.CustomerName}}님, 주문해 주셔서 감사합니다.

주문번호: {{.OrderNumber}}
주문일시: {{.OrderDate}}

{{range .Items}}- {{.Name}} x{{.Quantity}}  {{.Amount}}
{{end}}
상품금액: {{.TotalAmount}}
배송비: {{.ShippingFee}}
결제금액: {{.FinalAmount}}

상품이 출고되면 다시 안내해 드리겠습니다.
{{.Shop.Name}} {{.Shop.URL}}
`

const orderConfirmationHTML = `<!DOCTYPE html>
<html lang="ko">
<head><meta charset="utf-8"><title>주문 확인</title></head>
<body style="font-family: sans-serif; color: #222; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h1 style="font-size: 20px;">주문이 확인되었습니다</h1>
  <p>{{.CustomerName}}님, 주문해 주셔서 감사합니다.</p>
  <p><strong>주문번호</strong> {{.OrderNumber}}<br><strong>주문일시</strong> {{.OrderDate}}</p>
  <table style="width: 100%; border-collapse: collapse;">
    {{range .Items}}
    <tr>
      <td style="padding: 8px 0; border-bottom: 1px solid #eee;">{{.Name}} x{{.Quantity}}</td>
      <td style="padding: 8px 0; border-bottom: 1px solid #eee; text-align: right;">{{.Amount}}</td>
    </tr>
    {{end}}
  </table>
  <p style="text-align: right;">상품금액 {{.TotalAmount}}<br>배송비 {{.ShippingFee}}<br><strong>결제금액 {{.FinalAmount}}</strong></p>
  <p>상품이 출고되면 다시 안내해 드리겠습니다.</p>
  <p style="color: #888; font-size: 13px;"><a href="{{.Shop.URL}}">{{.Shop.Name}}</a></p>
</body>
</html>
`

const returnReceivedText = `{{.CustomerName}}님, 반품 신청이 접수되었습니다.

주문번호: {{.OrderNumber}}
신청일시: {{.RequestedAt}}
사유: {{.Reason}}

검토 후 처리 결과를 안내해 드리겠습니다.
{{.Shop.Name}} {{.Shop.URL}}
`

const returnReceivedHTML = `<!DOCTYPE html>
<html lang="ko">
<head><meta charset="utf-8"><title>반품 접수</title></head>
<body style="font-family: sans-serif; color: #222; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h1 style="font-size: 20px;">반품 신청이 접수되었습니다</h1>
  <p>{{.CustomerName}}님, 반품 신청이 접수되었습니다.</p>
  <p><strong>주문번호</strong> {{.OrderNumber}}<br><strong>신청일시</strong> {{.RequestedAt}}<br><strong>사유</strong> {{.Reason}}</p>
  <p>검토 후 처리 결과를 안내해 드리겠습니다.</p>
  <p style="color: #888; font-size: 13px;"><a href="{{.Shop.URL}}">{{.Shop.Name}}</a></p>
</body>
</html>
`

const returnRefundedText = `{{.CustomerName}}님, 반품하신 상품의 환불이 완료되었습니다.

주문번호: {{.OrderNumber}}
환불금액: {{.RefundAmount}}

카드사 사정에 따라 실제 환불까지 영업일 기준 3~5일이 걸릴 수 있습니다.
{{.Shop.Name}} {{.Shop.URL}}
`

const returnRefundedHTML = `<!DOCTYPE html>
<html lang="ko">
<head><meta charset="utf-8"><title>환불 완료</title></head>
<body style="font-family: sans-serif; color: #222; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h1 style="font-size: 20px;">반품 환불이 완료되었습니다</h1>
  <p>{{.CustomerName}}님, 반품하신 상품의 환불이 완료되었습니다.</p>
  <p><strong>주문번호</strong> {{.OrderNumber}}<br><strong>환불금액</strong> {{.RefundAmount}}</p>
  <p>카드사 사정에 따라 실제 환불까지 영업일 기준 3~5일이 걸릴 수 있습니다.</p>
  <p style="color: #888; font-size: 13px;"><a href="{{.Shop.URL}}">{{.Shop.Name}}</a></p>
</body>
</html>
`
