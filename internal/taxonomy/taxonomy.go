// Package taxonomy holds the occupation field and region codes crawled from
// Platsbanken, together with their display names.
package taxonomy

// Entry is one code with its display name.
type Entry struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

var fields = []Entry{
	{Code: "apaJ_2ja_LuF", Name: "Data/IT"},
	{Code: "6Hq3_tKo_V57", Name: "Tekniskt arbete"},
}

var regions = []Entry{
	{Code: "CifL_Rzy_Mku", Name: "Stockholms län"},
	{Code: "zBon_eET_fFU", Name: "Uppsala län"},
	{Code: "s93u_BEb_sx2", Name: "Södermanlands län"},
	{Code: "oLT3_Q9p_3nn", Name: "Östergötlands län"},
	{Code: "MtbE_xWT_eMi", Name: "Jönköpings län"},
	{Code: "tF3y_MF9_h5G", Name: "Kronobergs län"},
	{Code: "9QUH_2bb_6Np", Name: "Kalmar län"},
	{Code: "K8iD_VQv_2BA", Name: "Gotlands län"},
	{Code: "DQZd_uYs_oKb", Name: "Blekinge län"},
	{Code: "CaRE_1nn_cSU", Name: "Skåne län"},
	{Code: "wjee_qH2_yb6", Name: "Hallands län"},
	{Code: "zdoY_6u5_Krt", Name: "Västra Götalands län"},
	{Code: "EVVp_h6U_GSZ", Name: "Värmlands län"},
	{Code: "xTCk_nT5_Zjm", Name: "Örebro län"},
	{Code: "G6DV_fKE_Viz", Name: "Västmanlands län"},
	{Code: "oDpK_oZ2_WYt", Name: "Dalarnas län"},
	{Code: "zupA_8Nt_xcD", Name: "Gävleborgs län"},
	{Code: "NvUF_SP1_1zo", Name: "Västernorrlands län"},
	{Code: "65Ms_7r1_RTG", Name: "Jämtlands län"},
	{Code: "g5Tt_CAV_zBd", Name: "Västerbottens län"},
	{Code: "9hXe_F4g_eTG", Name: "Norrbottens län"},
}

// Fields returns a copy of the known occupation fields.
func Fields() []Entry {
	return append([]Entry(nil), fields...)
}

// Regions returns a copy of the known regions.
func Regions() []Entry {
	return append([]Entry(nil), regions...)
}

// FieldCodes returns the codes of all known fields.
func FieldCodes() []string {
	return codes(fields)
}

// RegionCodes returns the codes of all known regions.
func RegionCodes() []string {
	return codes(regions)
}

// FieldName resolves a field code. Unknown codes are returned unchanged.
func FieldName(code string) string {
	return lookup(fields, code)
}

// RegionName resolves a region code. Unknown codes are returned unchanged.
func RegionName(code string) string {
	return lookup(regions, code)
}

func codes(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Code
	}
	return out
}

func lookup(entries []Entry, code string) string {
	for _, e := range entries {
		if e.Code == code {
			return e.Name
		}
	}
	return code
}
