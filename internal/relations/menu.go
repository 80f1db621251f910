package relations

import (
	"strconv"

	"legacy-sync/internal/rows"
)

// MenuItem is a nav_menu_item post resolved against its meta and menu.
type MenuItem struct {
	Menu       string // Slug of the containing menu
	MenuName   string
	Label      string
	Kind       string // post_type, taxonomy or custom
	Object     string // Linked post type or taxonomy
	ObjectID   int64
	ObjectSlug string
	URL        string // Only set for custom links
	ParentItem int64
	Order      int
}

// MenuItem resolves a nav_menu_item post. It reports false when the item is
// not a member of any nav menu.
func (x *Index) MenuItem(p *rows.Post) (MenuItem, bool) {
	menu, ok := x.MenuOf(p.ID)
	if !ok {
		return MenuItem{}, false
	}

	item := MenuItem{
		Menu:     menu.Slug,
		MenuName: menu.Name,
		Label:    p.Title,
		Order:    p.MenuOrder,
	}
	item.Kind, _ = x.Meta(p.ID, MetaMenuItemType)
	item.Object, _ = x.Meta(p.ID, MetaMenuItemObject)
	item.URL, _ = x.Meta(p.ID, MetaMenuItemURL)
	if v, ok := x.Meta(p.ID, MetaMenuItemParent); ok {
		item.ParentItem, _ = strconv.ParseInt(v, 10, 64)
	}
	if v, ok := x.Meta(p.ID, MetaMenuItemObjectID); ok {
		item.ObjectID, _ = strconv.ParseInt(v, 10, 64)
	}

	switch item.Kind {
	case "post_type":
		if target, ok := x.Post(item.ObjectID); ok {
			item.ObjectSlug = target.Slug
			if item.Label == "" {
				item.Label = target.Title
			}
		}
	case "taxonomy":
		if term, ok := x.terms[item.ObjectID]; ok {
			item.ObjectSlug = term.Slug
			if item.Label == "" {
				item.Label = term.Name
			}
		}
	}
	return item, true
}
