package registry

// builtinKeywords is the standard field catalog described in spec.md §6.1.
// It is declarative on purpose — a flat table of name/synonym/type triples —
// the same shape as the teacher's command table, so extending the field set
// never touches registry logic.
var builtinKeywords = []Keyword{
	{Name: "serial", Synonyms: []string{"id"}, Type: TypeInt, Description: "atom serial number"},
	{Name: "resid", Synonyms: []string{"label_seq_id", "resseq"}, Type: TypeInt, Description: "residue sequence number"},
	{Name: "chain", Synonyms: []string{"chid", "chainid", "label_asym_id"}, Type: TypeString, Description: "chain identifier"},
	{Name: "model", Type: TypeInt, Description: "model number"},
	{Name: "index", Type: TypeInt, Description: "zero-based atom index"},
	{Name: "residue", Type: TypeInt, Description: "internal residue group id"},
	{Name: "fragment", Synonyms: []string{"chindex", "chain_index"}, Type: TypeInt, Description: "chain-break fragment id"},
	{Name: "frame", Type: TypeInt, Description: "trajectory frame number"},
	{Name: "name", Synonyms: []string{"label_atom_id"}, Type: TypeString, Description: "atom name"},
	{Name: "resname", Synonyms: []string{"label_comp_id"}, Type: TypeString, Description: "residue name"},
	{Name: "recname", Synonyms: []string{"atom", "hetatm"}, Type: TypeString, Description: "PDB record name"},
	{Name: "icode", Type: TypeString, Description: "insertion code"},
	{Name: "altloc", Type: TypeString, Description: "alternate location indicator"},
	{Name: "x", Synonyms: []string{"Cartn_x"}, Type: TypeFloat, Description: "x coordinate"},
	{Name: "y", Synonyms: []string{"Cartn_y"}, Type: TypeFloat, Description: "y coordinate"},
	{Name: "z", Synonyms: []string{"Cartn_z"}, Type: TypeFloat, Description: "z coordinate"},
	{Name: "occupancy", Type: TypeFloat, Description: "occupancy"},
	{Name: "beta", Synonyms: []string{"B_iso_or_equiv", "tempfactor"}, Type: TypeFloat, Description: "B-factor"},
	{Name: "charge", Type: TypeFloat, Description: "partial charge"},
	{Name: "element", Synonyms: []string{"type_symbol", "symbol"}, Type: TypeString, Description: "element symbol", CaseInsensitive: true},
	{Name: "segment", Synonyms: []string{"segname"}, Type: TypeString, Description: "segment identifier"},
	{Name: "type", Type: TypeString, Description: "force-field atom type"},
	{Name: "mass", Type: TypeFloat, Description: "atomic mass"},
	{Name: "atomicnumber", Type: TypeInt, Description: "atomic number"},
	{Name: "bonds", Synonyms: []string{"numbonds"}, Type: TypeInt, Description: "number of bonds"},
	{Name: "radius", Synonyms: []string{"radii"}, Type: TypeFloat, Description: "atomic radius"},
	{Name: "anisotropy", Synonyms: []string{"siguij"}, Type: TypeFloat, Description: "anisotropic displacement"},
	{Name: "vx", Type: TypeFloat, Description: "x velocity"},
	{Name: "vy", Type: TypeFloat, Description: "y velocity"},
	{Name: "vz", Type: TypeFloat, Description: "z velocity"},
	{Name: "fx", Type: TypeFloat, Description: "x force"},
	{Name: "fy", Type: TypeFloat, Description: "y force"},
	{Name: "fz", Type: TypeFloat, Description: "z force"},
	{Name: "ufx", Type: TypeFloat, Description: "x force, unwrapped"},
	{Name: "ufy", Type: TypeFloat, Description: "y force, unwrapped"},
	{Name: "ufz", Type: TypeFloat, Description: "z force, unwrapped"},
	{Name: "secondary", Synonyms: []string{"structure"}, Type: TypeString, Description: "secondary structure code", CaseInsensitive: true},
	{Name: "phi", Type: TypeFloat, Description: "backbone phi dihedral"},
	{Name: "psi", Type: TypeFloat, Description: "backbone psi dihedral"},
	{Name: "auth_asym_id", Type: TypeString, Description: "author chain identifier"},
	{Name: "auth_atom_id", Type: TypeString, Description: "author atom name"},
	{Name: "auth_comp_id", Type: TypeString, Description: "author residue name"},
	{Name: "auth_seq_id", Type: TypeInt, Description: "author residue sequence number"},
	{Name: "pfrag", Type: TypeInt, Description: "previous fragment id"},
	{Name: "nfrag", Type: TypeInt, Description: "next fragment id"},
}

// RegisterBuiltinKeywords registers the standard field catalog into r.
func RegisterBuiltinKeywords(r *Registry) error {
	for _, k := range builtinKeywords {
		if err := r.RegisterKeyword(k); err != nil {
			return err
		}
	}
	return nil
}
