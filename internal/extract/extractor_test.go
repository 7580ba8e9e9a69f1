package extract

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-easyapply-automation/internal/browser"
	"go-easyapply-automation/internal/browser/browsertest"
	"go-easyapply-automation/internal/models"
	"go-easyapply-automation/internal/rules"
	"go-easyapply-automation/internal/selector"
)

func TestParse(t *testing.T) {
	kw := rules.Default().Extract
	tests := []struct {
		name string
		card Card
		want Fields
	}{
		{
			name: "plain card text",
			card: Card{Text: "Software Engineering Intern\nAcme Tech Systems\nRemote, United States"},
			want: Fields{Title: "Software Engineering Intern", Company: "Acme Tech Systems", Location: "Remote, United States"},
		},
		{
			name: "bare line becomes title",
			card: Card{Text: "Data Analyst Intern"},
			want: Fields{Title: "Data Analyst Intern", Company: models.UnknownCompany, Location: models.UnknownLocation},
		},
		{
			name: "heading wins over text",
			card: Card{
				Text:     "Promoted\nBackend Engineer\nGlobex\nAustin, TX\n2 days ago",
				Headings: []string{"Backend Engineer"},
			},
			want: Fields{Title: "Backend Engineer", Company: "Globex", Location: "Austin, TX", Posted: "2 days ago"},
		},
		{
			name: "link without apply when no heading",
			card: Card{
				Text:  "Easy Apply\nPlatform Intern\nInitech LLC\nHybrid",
				Links: []string{"Easy Apply", "Platform Intern"},
			},
			want: Fields{Title: "Platform Intern", Company: "Initech LLC", Location: "Hybrid"},
		},
		{
			name: "company suffix beats earlier plain line",
			card: Card{Text: "QA Intern\nSan Jose, CA\nUmbrella Corp"},
			want: Fields{Title: "QA Intern", Company: "Umbrella Corp", Location: "San Jose, CA"},
		},
		{
			name: "short keywords need whole words",
			card: Card{Text: "ML Intern\nChicago Analytics Partners"},
			want: Fields{Title: "ML Intern", Company: "Chicago Analytics Partners", Location: models.UnknownLocation},
		},
		{
			name: "empty card",
			card: Card{},
			want: Fields{Title: models.UnknownTitle, Company: models.UnknownCompany, Location: models.UnknownLocation},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.card, kw))
		})
	}
}

func TestExtractUsesMarkupEvidence(t *testing.T) {
	card := browsertest.NewElement("Promoted\nSRE Intern\nHooli Inc\nRemote")
	card.HTMLValue = `<li><div><h3 class="base-search-card__title"> SRE
		Intern </h3><a href="/jobs/1">Apply now</a></div></li>`

	x := New(rules.Default(), selector.New(nil), nil)
	rec, err := x.Extract(3, card)
	require.NoError(t, err)
	assert.Equal(t, 3, rec.Index)
	assert.Equal(t, "SRE Intern", rec.Title)
	assert.Equal(t, "Hooli Inc", rec.Company)
	assert.Equal(t, "Remote", rec.Location)
	assert.Same(t, card, rec.Card)
}

func TestExtractSessionLost(t *testing.T) {
	card := browsertest.NewElement("x")
	card.Err = browser.ErrSessionLost
	_, err := New(rules.Default(), selector.New(nil), nil).Extract(0, card)
	assert.ErrorIs(t, err, browser.ErrSessionLost)
}

func TestExtractDescription(t *testing.T) {
	r := rules.Default()
	panels := r.Set(rules.RoleDescriptionPanel)
	main := r.Set(rules.RoleMainContent)
	long := strings.Repeat("Build and operate Go services. ", 4)

	tests := []struct {
		name  string
		setup func(p *browsertest.Page)
		want  string
	}{
		{
			name: "first panel long enough",
			setup: func(p *browsertest.Page) {
				p.Set(panels[0].Pattern, browsertest.NewElement("too short"))
				p.Set(panels[2].Pattern, browsertest.NewElement(long))
			},
			want: strings.TrimSpace(long),
		},
		{
			name: "falls back to longest main content line",
			setup: func(p *browsertest.Page) {
				p.Set(main[len(main)-1].Pattern, browsertest.NewElement("Jobs\n"+long+"\nshort line\nSee more jobs like this one on the board"))
			},
			want: strings.TrimSpace(long),
		},
		{
			name:  "nothing qualifies",
			setup: func(p *browsertest.Page) {},
			want:  "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := browsertest.NewPage()
			tt.setup(page)
			x := New(r, selector.New(nil), nil)
			x.DescriptionWait = 0

			got, err := x.ExtractDescription(context.Background(), page)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
