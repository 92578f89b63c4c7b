package reconciler

import (
	"sort"

	"github.com/MrSnakeDoc/keeper/internal/domain"
)

// Lists are ordered newest first. Records sharing a CreatedAt keep arrival order.

func sortNewestFirst(list []domain.Bookmark) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
}

func indexOf(list []domain.Bookmark, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

// sortedPosition returns the index after every record at least as new as rec.
func sortedPosition(list []domain.Bookmark, rec domain.Bookmark) int {
	return sort.Search(len(list), func(i int) bool {
		return list[i].CreatedAt.Before(rec.CreatedAt)
	})
}

func insertAt(list []domain.Bookmark, i int, rec domain.Bookmark) []domain.Bookmark {
	list = append(list, domain.Bookmark{})
	copy(list[i+1:], list[i:])
	list[i] = rec
	return list
}

func insertSorted(list []domain.Bookmark, rec domain.Bookmark) []domain.Bookmark {
	return insertAt(list, sortedPosition(list, rec), rec)
}

func removeAt(list []domain.Bookmark, i int) []domain.Bookmark {
	copy(list[i:], list[i+1:])
	list[len(list)-1] = domain.Bookmark{}
	return list[:len(list)-1]
}

// restoreAt puts rec back at its former index when that keeps the order,
// otherwise at its sorted position.
func restoreAt(list []domain.Bookmark, rec domain.Bookmark, index int) []domain.Bookmark {
	if index > len(list) {
		index = len(list)
	}
	if fitsAt(list, rec, index) {
		return insertAt(list, index, rec)
	}
	return insertSorted(list, rec)
}

func fitsAt(list []domain.Bookmark, rec domain.Bookmark, i int) bool {
	if i > 0 && list[i-1].CreatedAt.Before(rec.CreatedAt) {
		return false
	}
	if i < len(list) && list[i].CreatedAt.After(rec.CreatedAt) {
		return false
	}
	return true
}
