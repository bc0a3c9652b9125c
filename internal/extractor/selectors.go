package extractor

import (
	"github.com/IshaanNene/ItemSnap/internal/config"
	"github.com/IshaanNene/ItemSnap/internal/parser"
)

// Locators holds the ordered candidate lists for every field, most
// layout-specific first and generic fallbacks last.
type Locators struct {
	Title           []parser.Locator
	Price           []parser.Locator
	OriginalPrice   []parser.Locator
	Sales           []parser.Locator
	MainImages      []parser.Locator
	DetailContainer []parser.Locator
}

// DefaultLocators returns the built-in Taobao/Tmall locator lists.
func DefaultLocators() Locators {
	return Locators{
		Title: []parser.Locator{
			parser.XPath("/html/body/div[2]/div/div[2]/div[1]/div[2]/div[2]/div/div/div/div[1]/div/div[2]/div[1]/div/div/div[1]/span"),
			parser.CSS(".tb-detail-hd h1"),
			parser.CSS(`[data-spm="1000983"] h1`),
			parser.CSS(".itemTitle"),
			parser.CSS(".tb-main-title"),
			parser.CSS("h1[data-spm-anchor-id]"),
			parser.CSS("h1.tb-main-title"),
			parser.CSS("h1"),
			parser.CSS(".title"),
			parser.CSS(`[class*="title"]`),
			parser.CSS(`[class*="Title"]`),
		},
		Price: []parser.Locator{
			// Tmall, then Taobao layout.
			parser.XPath("/html/body/div[2]/div/div[2]/div[1]/div[2]/div[2]/div/div/div/div[1]/div/div[2]/div[2]/div[1]/div[3]/div[1]/div[1]/div[1]/span[3]"),
			parser.XPath("/html/body/div[2]/div/div[2]/div[1]/div[2]/div[2]/div/div/div/div[1]/div/div[2]/div[2]/div/div[3]/div/div[1]/span[2]"),
			parser.CSS(".tm-price-current .tm-price-num"),
			parser.CSS(".tb-rmb-num"),
			parser.CSS(".tm-price .tm-price-num"),
			parser.CSS(`[class*="price"] [class*="num"]`),
			parser.CSS(".price .num"),
			parser.CSS(".tm-price-panel .tm-price-current .tm-price-num"),
		},
		OriginalPrice: []parser.Locator{
			parser.CSS(".tm-price-original .tm-price-num"),
			parser.CSS(".tb-price-original .tb-price-num"),
			parser.CSS(`[class*="original"] [class*="num"]`),
			parser.CSS(".original-price .num"),
		},
		Sales: []parser.Locator{
			parser.CSS(".tm-ind-sellCount .tm-count"),
			parser.CSS(".tb-sellCount .tb-count"),
			parser.CSS(`[class*="sell"] [class*="count"]`),
			parser.CSS(`[class*="sales"] [class*="count"]`),
			parser.CSS(".sellCount"),
			parser.CSS(".sales-count"),
			parser.CSS(".sell-count"),
		},
		MainImages: []parser.Locator{
			parser.XPath("/html/body/div[2]/div/div[2]/div[1]/div[2]/div[1]/div[2]/div[1]/div[1]/div"),
			parser.CSS(".tb-gallery img"),
			parser.CSS(".tb-pic img"),
			parser.CSS("#J_UlThumb img"),
			parser.CSS(".tb-s40 img"),
			parser.CSS(".tb-thumb img"),
			parser.CSS(".tb-gallery .tb-pic img"),
		},
		DetailContainer: []parser.Locator{
			parser.XPath("/html/body/div[2]/div/div[2]/div[1]/div[2]/div[1]/div[3]/div[3]/div[3]/div[1]/div"),
			parser.CSS("#content"),
		},
	}
}

// LocatorsFromConfig starts from the defaults and replaces every list that
// has a configured override.
func LocatorsFromConfig(c config.LocatorsConfig) Locators {
	l := DefaultLocators()
	override := func(dst *[]parser.Locator, rules []config.LocatorRule) {
		if len(rules) > 0 {
			*dst = parser.FromRules(rules)
		}
	}
	override(&l.Title, c.Title)
	override(&l.Price, c.Price)
	override(&l.OriginalPrice, c.OriginalPrice)
	override(&l.Sales, c.Sales)
	override(&l.MainImages, c.MainImages)
	override(&l.DetailContainer, c.DetailContainer)
	return l
}
