package content

import (
	"sort"

	"github.com/nidhogg/skillbook/internal/domainerr"
)

// Diff returns the ids only in oldIDs and the ids only in newIDs, sorted.
func Diff(oldIDs, newIDs []string) (toDelete, toAdd []string) {
	oldSet := toSet(oldIDs)
	newSet := toSet(newIDs)
	for id := range oldSet {
		if _, ok := newSet[id]; !ok {
			toDelete = append(toDelete, id)
		}
	}
	for id := range newSet {
		if _, ok := oldSet[id]; !ok {
			toAdd = append(toAdd, id)
		}
	}
	sort.Strings(toDelete)
	sort.Strings(toAdd)
	return toDelete, toAdd
}

// Reconcile brings both maps from oldIDs to newIDs: deletions first, then
// additions. Every precondition is checked before either map is touched, so
// a failed call leaves both maps unchanged.
func Reconcile(vo *RecordedVoiceovers, wt *WrittenTranslations, oldIDs, newIDs []string) error {
	toDelete, toAdd := Diff(oldIDs, newIDs)

	for _, id := range toDelete {
		if !vo.Has(id) {
			return domainerr.Operationf("delete_content_id_for_voiceover", "The content_id %s does not exist.", id)
		}
		if !wt.Has(id) {
			return domainerr.Operationf("delete_content_id_for_translation", "The content_id %s does not exist.", id)
		}
	}
	for _, id := range toAdd {
		if vo.Has(id) {
			return domainerr.Operationf("add_content_id_for_voiceover", "The content_id %s already exist.", id)
		}
		if wt.Has(id) {
			return domainerr.Operationf("add_content_id_for_translation", "The content_id %s already exist.", id)
		}
	}

	for _, id := range toDelete {
		if err := vo.DeleteContentID(id); err != nil {
			return err
		}
		if err := wt.DeleteContentID(id); err != nil {
			return err
		}
	}
	for _, id := range toAdd {
		if err := vo.AddContentID(id); err != nil {
			return err
		}
		if err := wt.AddContentID(id); err != nil {
			return err
		}
	}
	return nil
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// IDSet returns ids as a set.
func IDSet(ids []string) map[string]struct{} { return toSet(ids) }
