package domain

import (
	"fmt"
	"slices"
	"strings"
)

// LayerDescriptor documents one audited WFS layer.
type LayerDescriptor struct {
	TypeName    string
	TitleEt     string
	TitleEn     string
	Provider    string
	MetadataURL string
}

// verifiedLayers is the allow-list. Add layers here rather than overriding
// the check at runtime so their provenance stays reviewable.
var verifiedLayers = []LayerDescriptor{
	{
		TypeName:    "poi_matkarada_j",
		TitleEt:     "Matkarada",
		TitleEn:     "Hiking trail",
		Provider:    "Maa- ja Ruumiamet (POI andmestik, mitme allika koond)",
		MetadataURL: "https://teenus.maaamet.ee/ows/huviobjektid-poi?layer=poi_matkarada_j&request=GetMetadata",
	},
	{
		TypeName:    "poi_rmk_matkarada_j",
		TitleEt:     "RMK matkarada",
		TitleEn:     "RMK hiking trail",
		Provider:    "Riigimetsa Majandamise Keskus (RMK)",
		MetadataURL: "https://geoportaal.maaamet.ee/index.php?fatlayerid=poi_rmk_matkarada_j&lang_id=1&page_id=912&plugin_act=getfatlayerid",
	},
	{
		TypeName:    "poi_rmk_matkatee_j",
		TitleEt:     "RMK matkatee",
		TitleEn:     "RMK hiking route",
		Provider:    "Riigimetsa Majandamise Keskus (RMK)",
		MetadataURL: "https://geoportaal.maaamet.ee/index.php?fatlayerid=poi_rmk_matkatee_j&lang_id=1&page_id=912&plugin_act=getfatlayerid",
	},
	{
		TypeName:    "poi_kea_matkarada_j",
		TitleEt:     "KeA/KOV matkarada",
		TitleEn:     "Environmental Board / municipalities hiking trail",
		Provider:    "Keskkonnaamet (KeA) ja omavalitsused (KOV)",
		MetadataURL: "https://geoportaal.maaamet.ee/index.php?fatlayerid=poi_kea_matkarada_j&lang_id=1&page_id=912&plugin_act=getfatlayerid",
	},
	{
		TypeName:    "poi_eestiterviserada_j",
		TitleEt:     "Terviserada",
		TitleEn:     "Health trail",
		Provider:    "SA Eesti Terviserajad",
		MetadataURL: "https://geoportaal.maaamet.ee/index.php?fatlayerid=poi_eestiterviserada_j&lang_id=1&page_id=912&plugin_act=getfatlayerid",
	},
}

// VerifiedLayers returns a copy of the allow-list in registry order.
func VerifiedLayers() []LayerDescriptor {
	return slices.Clone(verifiedLayers)
}

// VerifiedTypeNames returns the typeNames of all verified layers.
func VerifiedTypeNames() []string {
	names := make([]string, len(verifiedLayers))
	for i, l := range verifiedLayers {
		names[i] = l.TypeName
	}
	return names
}

// IsVerified reports whether typeName is in the allow-list.
func IsVerified(typeName string) bool {
	return slices.ContainsFunc(verifiedLayers, func(l LayerDescriptor) bool {
		return l.TypeName == typeName
	})
}

// ConfigurationError is returned when a run requests layers outside the
// allow-list without the override. It is fatal to the whole run.
type ConfigurationError struct {
	Rejected []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("refusing to import unverified layer(s): %s (add them to the verified layer registry or set ALLOW_UNVERIFIED_LAYERS=true)",
		strings.Join(e.Rejected, ", "))
}

// CheckLayers rejects every unverified layer unless allowUnverified is set.
// All offending names are reported at once.
func CheckLayers(requested []string, allowUnverified bool) error {
	if allowUnverified {
		return nil
	}
	var rejected []string
	for _, name := range requested {
		if !IsVerified(name) {
			rejected = append(rejected, name)
		}
	}
	if len(rejected) > 0 {
		return &ConfigurationError{Rejected: rejected}
	}
	return nil
}
