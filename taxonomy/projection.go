package taxonomy

// fullRecord renders every field ns exposes for t.
// Core fields win over attributes with the same key.
func (ns *Namespace) fullRecord(t *Taxon) Record {
	rec := make(Record, 6+len(t.Attributes))
	for k, v := range t.Attributes {
		rec[k] = v
	}
	rec[FieldID] = t.ID
	rec[FieldNS] = ns.ID
	rec[ns.NameField] = t.Name
	if ns.HasRank {
		rec[FieldRank] = t.Rank
	}
	if ns.HasStrains {
		rec[FieldStrain] = t.Strain
	}
	if t.ParentID != "" {
		rec[FieldParentID] = t.ParentID
	}
	return rec
}

// Project renders t restricted to the selected fields. id and ns are always
// present; selected fields the namespace does not expose are skipped. An
// empty selection yields the full record.
func (ns *Namespace) Project(t *Taxon, sel []string) Record {
	full := ns.fullRecord(t)
	if len(sel) == 0 {
		return full
	}
	out := Record{FieldID: full[FieldID], FieldNS: full[FieldNS]}
	for _, field := range sel {
		if v, ok := full[field]; ok {
			out[field] = v
		}
	}
	return out
}

func (ns *Namespace) projectAll(taxa []Taxon, sel []string) []Record {
	out := make([]Record, len(taxa))
	for i := range taxa {
		out[i] = ns.Project(&taxa[i], sel)
	}
	return out
}
