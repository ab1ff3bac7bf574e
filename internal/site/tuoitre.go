package site

import (
	"github.com/IshaanNene/newsharvest/internal/parser"
	"github.com/IshaanNene/newsharvest/internal/types"
)

// TuoiTre lists categories by path and grows each listing with a "view more" control.
func TuoiTre() *Site {
	return &Site{
		Source: types.SourceTuoiTre,
		Root:   "https://tuoitre.vn",

		Navigation:    parser.XPath(`//ul[@class='menu-nav']`, ""),
		CategoryLinks: parser.XPath(`.//a[@title and contains(@class, 'nav-link')]`, "href"),

		Pagination:       LoadMore,
		LoadMoreSelector: "a.view-more",

		Articles: parser.XPath(`//a[@class='box-category-link-title' and @data-type='0']`, "href"),

		Published: parser.CSS("div.detail-top div[data-role='publishdate']", "text"),

		ShowMoreComments: ".viewmore-comment",
		Comments:         parser.CSS("div#detail_comment ul[data-view='listcm'] li.item-comment[data-parentid='0']", ""),
		CommentContent:   parser.CSS("span.contentcomment", "text"),
		CommentLikes:     parser.CSS("div.totalreact span.total", "text"),
	}
}
