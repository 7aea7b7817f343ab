package scrape

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"news_ingestor/internal/domain"
)

const listingPage = `<html><body>
<article class="article-item">
	<h3 class="article-title"><a href="/kinh-doanh/first.htm"> First story </a></h3>
	<div class="article-excerpt">First excerpt</div>
	<div class="article-thumb"><img src="placeholder.gif" data-src="https://cdn.example/1.jpg"></div>
</article>
<article class="article-item">
	<h3 class="article-title"><a href="https://dantri.com.vn/second.htm">Second story</a></h3>
	<div class="article-thumb"><img src="https://cdn.example/2.jpg"></div>
</article>
<article class="article-item">
	<h3 class="article-title"><a>No link here</a></h3>
</article>
<article class="article-item">
	<div class="article-excerpt">Card without a title</div>
</article>
</body></html>`

type fakeLoader struct {
	pages map[string]string
	err   error
	urls  []string
}

func (f *fakeLoader) Load(_ context.Context, url string) (string, error) {
	f.urls = append(f.urls, url)
	if f.err != nil {
		return "", f.err
	}
	return f.pages[url], nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestSource(loader PageLoader) *Source {
	return New(Config{
		ID:         "dantri",
		Name:       "Dân trí",
		URLPattern: "https://dantri.com.vn/%s.htm",
		Selectors: Selectors{
			Item:      "article.article-item",
			Title:     ".article-title a",
			Excerpt:   ".article-excerpt",
			Thumbnail: ".article-thumb img",
		},
	}, loader, testLogger())
}

func TestFetchCategory_ExtractsCards(t *testing.T) {
	loader := &fakeLoader{pages: map[string]string{"https://dantri.com.vn/kinh-doanh.htm": listingPage}}

	items, err := newTestSource(loader).FetchCategory(context.Background(), domain.Category{Slug: "kinh-doanh", Name: "Kinh doanh"})

	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "First story", items[0].Title)
	assert.Equal(t, "/kinh-doanh/first.htm", items[0].Link)
	assert.Equal(t, "First excerpt", items[0].Description)
	assert.Equal(t, "https://cdn.example/1.jpg", items[0].ImageURL)

	assert.Equal(t, "Second story", items[1].Title)
	assert.Equal(t, "Second story", items[1].Description, "excerpt falls back to the title")
	assert.Equal(t, "https://cdn.example/2.jpg", items[1].ImageURL)
}

func TestFetchCategory_PanickingCardIsSkipped(t *testing.T) {
	loader := &fakeLoader{pages: map[string]string{"https://dantri.com.vn/kinh-doanh.htm": listingPage}}
	src := newTestSource(loader)
	src.parseCard = func(card *goquery.Selection) (domain.RawItem, error) {
		if strings.Contains(card.Text(), "First story") {
			panic("malformed card markup")
		}
		return src.parse(card)
	}

	items, err := src.FetchCategory(context.Background(), domain.Category{Slug: "kinh-doanh", Name: "Kinh doanh"})

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Second story", items[0].Title)
}

func TestFetchCategory_NoCards(t *testing.T) {
	loader := &fakeLoader{pages: map[string]string{"https://dantri.com.vn/the-thao.htm": "<html><body><p>maintenance</p></body></html>"}}

	items, err := newTestSource(loader).FetchCategory(context.Background(), domain.Category{Slug: "the-thao"})

	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestFetchCategory_LoaderFailureIsFetchError(t *testing.T) {
	loader := &fakeLoader{err: errors.New("net::ERR_NAME_NOT_RESOLVED")}

	_, err := newTestSource(loader).FetchCategory(context.Background(), domain.Category{Slug: "the-gioi"})

	var fetchErr *domain.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "the-gioi", fetchErr.Category)
}

func TestFetchCategory_UsesCategoryURL(t *testing.T) {
	loader := &fakeLoader{pages: map[string]string{}}

	_, err := newTestSource(loader).FetchCategory(context.Background(),
		domain.Category{Slug: "home", URL: "https://dantri.com.vn/"})

	require.NoError(t, err)
	assert.Equal(t, []string{"https://dantri.com.vn/"}, loader.urls)
}

func TestStaticLoader_Load(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.htm" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, listingPage)
	}))
	defer server.Close()

	loader := NewStaticLoader(5 * time.Second)

	html, err := loader.Load(context.Background(), server.URL+"/kinh-doanh.htm")
	require.NoError(t, err)
	assert.Contains(t, html, "First story")

	_, err = loader.Load(context.Background(), server.URL+"/missing.htm")
	assert.Error(t, err)
}

func TestStaticLoader_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewStaticLoader(time.Second).Load(ctx, "http://127.0.0.1:1/")

	assert.ErrorIs(t, err, context.Canceled)
}
