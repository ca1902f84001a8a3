package esm

// Field groups shared by many record types.
var (
	editorID = []fieldDef{def("EDID", zstring)}
	named    = []fieldDef{def("EDID", zstring), def("FULL", lstring)}
	bounded  = []fieldDef{def("OBND", typed[ObjectBounds](12))}
	modelled = []fieldDef{def("MODL", zstring)}
	scripted = []fieldDef{def("SCRI", formID)}
	iconed   = []fieldDef{def("ICON", zstring)}
	effects  = []fieldDef{
		def("EFID", formID),
		def("EFIT", typed[EffectItem](20)),
		def("CTDA", structOf(28)),
	}
)

func fields(defs ...fieldDef) []fieldDef {
	return defs
}

// Default returns a registry holding every record type the package knows.
func Default() *Registry {
	r := NewRegistry()

	r.Add(newSchema("TES4", fields(
		def("HEDR", typed[HeaderData](12)),
		def("CNAM", zstring),
		def("SNAM", zstring),
		def("MAST", zstring),
		def("DATA", u64),
		def("ONAM", skip),
	)))

	r.Add(newSchema("GMST", editorID, fields(def("DATA", opaque))))
	r.Add(newSchema("GLOB", editorID, fields(def("FNAM", u8), def("FLTV", f32))))
	r.Add(newSchema("FACT", named, fields(
		def("XNAM", typed[FactionRelation](12)),
		def("DATA", u32),
		def("RNAM", u32),
		def("MNAM", lstring),
		def("FNAM", lstring),
	)))
	r.Add(newSchema("TXST", editorID, bounded, fields(
		def("TX00", zstring), def("TX01", zstring), def("TX02", zstring), def("TX03", zstring),
		def("TX04", zstring), def("TX05", zstring), def("TX06", zstring), def("TX07", zstring),
		def("DNAM", u16),
	)))
	r.Add(newSchema("CLAS", named, fields(
		def("DESC", lstring),
		def("DATA", opaque),
		def("ATTR", typed[Attributes](7)),
	)))
	r.Add(newSchema("SOUN", editorID, bounded, fields(
		def("FNAM", zstring),
		def("SNDD", opaque),
		def("SDSC", formID),
	)))
	r.Add(newSchema("ASPC", editorID, bounded, fields(
		def("SNAM", formID),
		def("RDAT", formID),
		def("BNAM", formID),
		def("ANAM", structOf(4)),
	)))
	r.Add(newSchema("MGEF", named, fields(
		def("DESC", lstring),
		def("KSIZ", u32),
		def("DATA", opaque),
	)))
	r.Add(newSchema("ENCH", named, fields(
		def("ENIT", opaque),
		def("EFID", formID),
		def("EFIT", typed[EffectItem](20)),
	)))
	r.Add(newSchema("SPEL", named, effects, fields(def("SPIT", opaque))))
	r.Add(newSchema("ACTI", named, bounded, modelled, scripted, fields(
		def("VNAM", formID),
		def("SNAM", formID),
		def("DEST", structOf(8)),
		def("DSTD", opaque),
		def("DMDL", zstring),
	)))
	r.Add(newSchema("TERM", named, bounded, modelled, fields(
		def("DESC", lstring),
		def("CTDA", structOf(28)),
		def("RNAM", zstring),
		def("ITXT", zstring),
		def("SNAM", formID),
		def("SCHR", opaque),
	)))
	r.Add(newSchema("CONT", named, bounded, modelled, scripted, fields(
		def("DATA", structOf(5)),
		def("CNTO", typed[ContainerItem](8)),
		def("COED", structOf(12)),
	)))
	r.Add(newSchema("LIGH", editorID, bounded, modelled, scripted))
	r.Add(newSchema("MISC", editorID, bounded, modelled, iconed))
	r.Add(newSchema("STAT", named, bounded, modelled))
	r.Add(newSchema("MSTT", named, bounded, modelled, fields(def("DATA", u8))))
	r.Add(newSchema("PWAT", editorID, bounded, modelled))
	r.Add(newSchema("FURN", named, bounded, modelled, fields(def("MNAM", u32))))
	r.Add(newSchema("WEAP", named, bounded, modelled, iconed, scripted, fields(
		def("MOD2", zstring), def("MOD3", zstring), def("MOD4", zstring),
		def("CRDT", typed[CriticalData](16)),
		def("EITM", formID),
		def("ETYP", u32),
		def("DATA", opaque),
		def("REPL", formID),
		def("NAM0", formID),
		def("NAM6", formID),
		def("NAM8", formID),
		def("NAM9", formID),
		def("DNAM", opaque),
		def("INAM", formID),
		def("NNAM", zstring),
		def("SNAM", formID),
		def("TNAM", formID),
		def("UNAM", formID),
		def("VNAM", u32),
		def("WNAM", formID),
		def("XNAM", formID),
		def("YNAM", formID),
		def("ZNAM", formID),
	)))
	r.Add(newSchema("AMMO", named, bounded, modelled, iconed))
	r.Add(newSchema("CREA", named, bounded))
	r.Add(newSchema("NPC_", named, bounded, modelled))
	r.Add(newSchema("LVLC", editorID, bounded))
	r.Add(newSchema("LVLI", editorID, bounded))
	r.Add(newSchema("ALCH", named, bounded, modelled, iconed, effects))
	r.Add(newSchema("INGR", named, bounded, modelled, iconed, effects))
	r.Add(newSchema("NOTE", named, bounded, modelled, iconed))
	r.Add(newSchema("BOOK", named, bounded, modelled, iconed, scripted, fields(def("DESC", lstring))))
	r.Add(newSchema("KEYM", named, bounded, modelled, iconed, scripted))
	r.Add(newSchema("PROJ", named, bounded, modelled))
	r.Add(newSchema("EXPL", named, bounded, modelled))
	r.Add(newSchema("WATR", named))
	r.Add(newSchema("EFSH", editorID, iconed, fields(def("ICO2", zstring))))
	r.Add(newSchema("PERK", named, iconed, fields(def("DESC", lstring))))
	r.Add(newSchema("ADDN", editorID, bounded, modelled))
	r.Add(newSchema("CPTH", editorID, modelled, fields(def("CTDA", structOf(28)))))
	r.Add(newSchema("ARMA", named, bounded, modelled, fields(def("MOD3", zstring))))
	r.Add(newSchema("MESG", named, fields(def("DESC", lstring))))
	r.Add(newSchema("WRLD", named, fields(
		def("CNAM", formID),
		def("XXXX", FieldSpec{Kind: KindOverride}),
	)))
	r.Add(newSchema("TACT", named, bounded, modelled, scripted, fields(def("VNAM", formID))))
	r.Add(newSchema("ARMO", named, bounded, modelled, iconed, fields(
		def("EITM", formID),
		def("MODS", opaque),
		def("MOD2", zstring),
		def("MOD3", zstring),
		def("MO2S", opaque),
		def("MO3S", opaque),
	)))
	r.Add(newSchema("DOOR", named, bounded, modelled, scripted))
	r.Add(newSchema("SCOL", editorID, bounded, modelled))
	r.Add(newSchema("IDLM", editorID, bounded))
	r.Add(newSchema("CELL", named))

	for _, tag := range []string{"ANIO", "BPTD", "IPCT"} {
		r.Add(newSchema(tag, editorID, modelled))
	}
	for _, tag := range []string{
		"REGN", "DIAL", "QUST", "PACK", "CSTY", "DEBR", "IMGS", "FLST",
		"CAMS", "VTYP", "IPDS", "ECZN", "RGDL", "ACRE",
	} {
		r.Add(newSchema(tag, editorID))
	}

	// Field lists are walked but nothing is decoded.
	for _, tag := range []string{"SCPT", "NAVI", "IDLE", "NAVM", "ACHR", "INFO"} {
		r.Add(newSchema(tag))
	}

	// Bodies are skipped without walking fields.
	for _, tag := range []string{"REFR", "IMAD"} {
		s := newSchema(tag)
		s.SkipPayload = true
		r.Add(s)
	}

	return r
}
