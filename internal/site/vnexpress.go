package site

import (
	"fmt"

	"github.com/IshaanNene/newsharvest/internal/parser"
	"github.com/IshaanNene/newsharvest/internal/types"
)

const vnExpressRoot = "https://vnexpress.net/"

// VnExpress lists categories by numeric id and pages through a date-filtered listing.
func VnExpress() *Site {
	return &Site{
		Source: types.SourceVnExpress,
		Root:   vnExpressRoot,

		Navigation:    parser.XPath(`//nav[@class='main-nav']`, ""),
		CategoryLinks: parser.XPath(`.//li[@data-id]`, "data-id"),

		Pagination: Numbered,
		PageURL:    vnExpressPageURL,

		Articles: parser.XPath(`//article//h3[@class='title-news']//a`, "href"),

		Published: parser.XPath(`.//div[contains(@class, 'header-content')]//span[contains(@class, 'date')]`, "text"),

		Comments:       parser.XPath(`//div[@id='list_comment']//div[contains(@class, 'content-comment')]`, ""),
		CommentContent: parser.XPath(`.//p[contains(@class, 'full_content')]`, "text"),
		CommentLikes:   parser.XPath(`.//div[contains(@class, 'reactions-total')]//a`, "text"),
		LikesRequired:  true,
	}
}

func vnExpressPageURL(category string, page int, w Window) string {
	u := fmt.Sprintf("%scategory/day/cateid/%s/fromdate/%d/todate/%d",
		vnExpressRoot, category, w.From.Unix(), w.To.Unix())
	if page > 1 {
		u += fmt.Sprintf("/allcate/0/page/%d", page)
	}
	return u
}
