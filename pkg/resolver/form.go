package resolver

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// playerFormSelector marks the hidden form whose submission yields the
// player page.
const playerFormSelector = "form.tt"

// formSubmission is the reconstructed hidden form: its target address and
// the encoded POST body. Built once per resolution and discarded after
// submission.
type formSubmission struct {
	Action string
	Body   string
}

// findPlayerForm locates the hidden player form in a content document and
// rebuilds its submission from every hidden input that has both a name and
// a value, in document order. Duplicate names keep the last value, matching
// standard form-encoding semantics.
func findPlayerForm(doc *goquery.Document) (*formSubmission, error) {
	form := doc.Find(playerFormSelector).First()
	if form.Length() == 0 {
		return nil, ErrFormNotFound
	}

	var names []string
	values := make(map[string]string)
	form.Find("input[type=hidden][name][value]").Each(func(_ int, input *goquery.Selection) {
		name := input.AttrOr("name", "")
		if _, seen := values[name]; !seen {
			names = append(names, name)
		}
		values[name] = input.AttrOr("value", "")
	})

	var body strings.Builder
	for i, name := range names {
		if i > 0 {
			body.WriteByte('&')
		}
		body.WriteString(url.QueryEscape(name))
		body.WriteByte('=')
		body.WriteString(url.QueryEscape(values[name]))
	}

	return &formSubmission{
		Action: form.AttrOr("action", ""),
		Body:   body.String(),
	}, nil
}
