package commission

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	ptime "github.com/yaa110/go-persian-calendar"

	"github.com/bank-melli/commission/pkg/fiscal"
	"github.com/bank-melli/commission/pkg/models"
)

type letterData struct {
	LetterNumber string
	CaseNumber   string
	Date         time.Time
	Person       *models.InsuredPerson
	CaseType     string
	Assessment   string
	Notes        string
	ReferredTo   string
}

var letterTemplate = template.Must(template.New("referral").Funcs(template.FuncMap{
	"jalali": func(t time.Time) string {
		return ptime.New(t.In(fiscal.Tehran)).Format("yyyy/MM/dd")
	},
	"caseType": func(t string) string {
		if label, ok := models.SocialWorkTypeLabels[t]; ok {
			return label
		}
		return t
	},
}).Parse(`بسمه تعالی

معرفی‌نامه به {{.ReferredTo}}

شماره: {{.LetterNumber}}
پرونده مددکاری: {{.CaseNumber}}
تاریخ: {{jalali .Date}}

احتراماً،

بیمه شده محترم با مشخصات زیر:
- نام و نام خانوادگی: {{.Person.FullName}}
- کد پرسنلی: {{.Person.PersonnelCode}}
- نوع درخواست: {{caseType .CaseType}}

با توجه به بررسی‌های انجام شده توسط واحد مددکاری، نیاز به حمایت تأیید می‌گردد.

گزارش ارزیابی:
{{.Assessment}}
{{if .Notes}}
یادداشت‌های تکمیلی:
{{.Notes}}
{{end}}
لذا خواهشمند است بررسی‌های لازم را جهت اقدامات حمایتی مقتضی معمول فرمایید.

با تشکر
واحد مددکاری
`))

func renderLetter(d letterData) (string, error) {
	if d.Person == nil {
		return "", fmt.Errorf("referral letter %s has no insured person", d.LetterNumber)
	}

	var buf bytes.Buffer
	if err := letterTemplate.Execute(&buf, d); err != nil {
		return "", fmt.Errorf("error rendering referral letter: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}
