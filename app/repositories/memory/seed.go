package memory

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"mediumplus/app/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases s and joins its words with dashes.
func Slugify(s string) string {
	return strings.Trim(nonSlugChars.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

// Seed fills the store with n generated posts, each with a few comments of
// which only some are approved. The same seed yields the same text.
func Seed(store *Store, n int, seed int64) []*models.Post {
	f := gofakeit.New(seed)
	end := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	start := end.AddDate(-2, 0, 0)

	posts := make([]*models.Post, 0, n)
	for i := 0; i < n; i++ {
		title := strings.TrimSuffix(f.Sentence(f.Number(3, 7)), ".")
		post := &models.Post{
			ID:          uuid.NewString(),
			CreatedAt:   f.DateRange(start, end).UTC(),
			Title:       title,
			Description: f.Sentence(f.Number(8, 16)),
			Author: models.Author{
				Name:  f.Name(),
				Image: models.Image{Asset: models.Asset{URL: f.ImageURL(96, 96)}},
			},
			MainImage: models.Image{Asset: models.Asset{URL: f.ImageURL(1200, 600)}},
			Slug:      models.Slug{Current: fmt.Sprintf("%s-%d", Slugify(title), i+1)},
			Body:      fakeBody(f),
		}
		store.AddPost(post)
		posts = append(posts, post)

		for j := f.Number(0, 4); j > 0; j-- {
			c := &models.Comment{
				Name:    f.Name(),
				Email:   f.Email(),
				Comment: f.Sentence(f.Number(4, 20)),
				Post:    models.Reference{Ref: post.ID},
			}
			if err := store.CreateComment(context.Background(), c); err != nil {
				continue
			}
			if f.Bool() {
				_ = store.Approve(c.ID)
			}
		}
	}
	return posts
}

func fakeBody(f *gofakeit.Faker) models.Body {
	body := models.Body{
		&models.TextBlock{
			Type:     "block",
			Key:      f.LetterN(8),
			Style:    "h2",
			Children: []models.Span{{Type: "span", Text: strings.TrimSuffix(f.Sentence(4), ".")}},
		},
	}
	for p := f.Number(2, 4); p > 0; p-- {
		body = append(body, &models.TextBlock{
			Type:  "block",
			Key:   f.LetterN(8),
			Style: "normal",
			Children: []models.Span{
				{Type: "span", Text: f.Paragraph(1, 4, 12, " ") + " "},
				{Type: "span", Text: f.Word(), Marks: []string{"strong"}},
			},
		})
	}
	for li := f.Number(0, 3); li > 0; li-- {
		body = append(body, &models.TextBlock{
			Type:     "block",
			Key:      f.LetterN(8),
			Style:    "normal",
			ListItem: "bullet",
			Level:    1,
			Children: []models.Span{{Type: "span", Text: f.Sentence(5)}},
		})
	}
	return body
}
