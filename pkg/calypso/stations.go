package calypso

import "fmt"

// navigoStations maps Île-de-France location codes found in Navigo event records.
var navigoStations = map[uint16]string{
	0x0001: "Châtelet",
	0x0002: "Gare du Nord",
	0x0003: "Gare de Lyon",
	0x0004: "Montparnasse-Bienvenüe",
	0x0005: "Saint-Lazare",
	0x0006: "République",
	0x0007: "Nation",
	0x0008: "Bastille",
	0x0009: "Opéra",
	0x000A: "Charles de Gaulle-Étoile",
	0x0011: "La Défense",
	0x0012: "Esplanade de La Défense",
	0x0013: "Pont de Neuilly",
	0x0014: "Les Sablons",
	0x0015: "Porte Maillot",
	0x0016: "Argentine",
	0x0017: "George V",
	0x0018: "Franklin D. Roosevelt",
	0x0019: "Champs-Élysées Clemenceau",
	0x001A: "Concorde",
	0x001B: "Tuileries",
	0x001C: "Palais Royal-Musée du Louvre",
	0x001D: "Louvre-Rivoli",
	0x001E: "Hôtel de Ville",
	0x001F: "Saint-Paul",
	0x0020: "Château de Vincennes",
	0x0041: "Porte de Clignancourt",
	0x0042: "Simplon",
	0x0043: "Marcadet-Poissonniers",
	0x0044: "Château Rouge",
	0x0045: "Barbès-Rochechouart",
	0x0046: "Gare de l'Est",
	0x0047: "Château d'Eau",
	0x0048: "Strasbourg-Saint-Denis",
	0x0049: "Réaumur-Sébastopol",
	0x004A: "Étienne Marcel",
	0x004B: "Les Halles",
	0x004C: "Cité",
	0x004D: "Saint-Michel",
	0x004E: "Odéon",
	0x004F: "Saint-Germain-des-Prés",
	0x0050: "Saint-Sulpice",
	0x0051: "Vavin",
	0x0052: "Raspail",
	0x0053: "Denfert-Rochereau",
	0x0054: "Porte d'Orléans",
	0x0061: "Charles de Gaulle-Étoile",
	0x0062: "Kléber",
	0x0063: "Boissière",
	0x0064: "Trocadéro",
	0x0065: "Passy",
	0x0066: "Bir-Hakeim",
	0x0067: "Dupleix",
	0x0068: "La Motte-Picquet Grenelle",
	0x0069: "Cambronne",
	0x006A: "Sèvres-Lecourbe",
	0x006B: "Pasteur",
	0x006C: "Montparnasse-Bienvenüe",
	0x0071: "La Courneuve 8 Mai 1945",
	0x0072: "Fort d'Aubervilliers",
	0x0073: "Aubervilliers-Pantin 4 Chemins",
	0x0074: "Porte de la Villette",
	0x0075: "Corentin Cariou",
	0x0076: "Crimée",
	0x0077: "Riquet",
	0x0078: "Stalingrad",
	0x0079: "Louis Blanc",
	0x007A: "Château-Landon",
	0x007B: "Gare de l'Est",
	0x007C: "Poissonnière",
	0x007D: "Cadet",
	0x007E: "Le Peletier",
	0x007F: "Chaussée d'Antin La Fayette",
	0x0080: "Pyramides",
	0x0081: "Pont Neuf",
	0x0082: "Pont Marie",
	0x0083: "Sully-Morland",
	0x0084: "Jussieu",
	0x0085: "Place Monge",
	0x0086: "Censier-Daubenton",
	0x0087: "Les Gobelins",
	0x0088: "Place d'Italie",
	0x0089: "Tolbiac",
	0x008A: "Maison Blanche",
	0x008B: "Porte d'Italie",
	0x008C: "Porte de Choisy",
	0x008D: "Porte d'Ivry",
	0x008E: "Pierre et Marie Curie",
	0x008F: "Mairie d'Ivry",
	0x0090: "Le Kremlin-Bicêtre",
	0x0091: "Villejuif-Louis Aragon",
	0x0141: "Saint-Lazare",
	0x0142: "Madeleine",
	0x0143: "Pyramides",
	0x0144: "Châtelet",
	0x0145: "Gare de Lyon",
	0x0146: "Bercy",
	0x0147: "Cour Saint-Émilion",
	0x0148: "Bibliothèque François Mitterrand",
	0x0149: "Olympiades",
	0x014A: "Mairie d'Ivry",
	0x0A01: "Charles de Gaulle-Étoile",
	0x0A02: "Auber",
	0x0A03: "Châtelet-Les Halles",
	0x0A04: "Gare de Lyon",
	0x0A05: "Nation",
	0x0A06: "Vincennes",
	0x0A07: "Fontenay-sous-Bois",
	0x0A08: "Nogent-sur-Marne",
	0x0A09: "Val de Fontenay",
	0x0A10: "Neuilly-Plaisance",
	0x0A11: "Bry-sur-Marne",
	0x0A12: "Noisy-le-Grand Mont d'Est",
	0x0A13: "La Défense",
	0x0A14: "Nanterre-Université",
	0x0A15: "Nanterre-Préfecture",
	0x0A16: "Rueil-Malmaison",
	0x0A17: "Chatou-Croissy",
	0x0A18: "Le Vésinet-Le Pecq",
	0x0A19: "Saint-Germain-en-Laye",
	0x0A20: "Cergy-Le Haut",
	0x0A21: "Poissy",
	0x0A22: "Marne-la-Vallée Chessy",
	0x0B01: "Charles de Gaulle Airport T2",
	0x0B02: "Charles de Gaulle Airport T3",
	0x0B03: "Parc des Expositions",
	0x0B04: "Villepinte",
	0x0B05: "Sevran-Beaudottes",
	0x0B06: "Mitry-Claye",
	0x0B07: "Aulnay-sous-Bois",
	0x0B08: "Le Blanc-Mesnil",
	0x0B09: "Drancy",
	0x0B0A: "Le Bourget",
	0x0B0B: "La Courneuve-Aubervilliers",
	0x0B0C: "La Plaine-Stade de France",
	0x0B0D: "Gare du Nord",
	0x0B0E: "Châtelet-Les Halles",
	0x0B0F: "Saint-Michel Notre-Dame",
	0x0B10: "Luxembourg",
	0x0B11: "Port-Royal",
	0x0B12: "Denfert-Rochereau",
	0x0B13: "Cité Universitaire",
	0x0B14: "Gentilly",
	0x0B15: "Laplace",
	0x0B16: "Arcueil-Cachan",
	0x0B17: "Bourg-la-Reine",
	0x0B18: "Antony",
	0x0B19: "Orly Airport",
	0x0B20: "Massy-Palaiseau",
	0x0B21: "Saint-Rémy-lès-Chevreuse",
	0x0C01: "Pontoise",
	0x0C02: "Saint-Ouen-l'Aumône",
	0x0C03: "Pierrelaye",
	0x0C04: "Montigny-Beauchamp",
	0x0C05: "Franconville-Le Plessis-Bouchard",
	0x0C06: "Ermont-Eaubonne",
	0x0C07: "Cernay",
	0x0C08: "Gennevilliers",
	0x0C09: "Les Grésillons",
	0x0C10: "Saint-Ouen",
	0x0C11: "Porte de Clichy",
	0x0C12: "Pereire-Levallois",
	0x0C13: "Neuilly-Porte Maillot",
	0x0C14: "Avenue Foch",
	0x0C15: "Avenue Henri Martin",
	0x0C16: "Boulainvilliers",
	0x0C17: "Avenue du Président Kennedy",
	0x0C18: "Champ de Mars-Tour Eiffel",
	0x0C19: "Pont de l'Alma",
	0x0C20: "Invalides",
	0x0C21: "Musée d'Orsay",
	0x0C22: "Saint-Michel Notre-Dame",
	0x0C23: "Bibliothèque François Mitterrand",
	0x0C24: "Ivry-sur-Seine",
	0x0C25: "Vitry-sur-Seine",
	0x0C26: "Les Ardoines",
	0x0C27: "Choisy-le-Roi",
	0x0C28: "Villeneuve-Saint-Georges",
	0x0C29: "Montgeron-Crosne",
	0x0C30: "Brunoy",
	0x0C31: "Épinay-sur-Orge",
	0x0C32: "Sainte-Geneviève-des-Bois",
	0x0C33: "Saint-Michel-sur-Orge",
	0x0C34: "Brétigny-sur-Orge",
	0x0C35: "Marolles-en-Hurepoix",
	0x0C36: "Bouray",
	0x0C37: "Lardy",
	0x0C38: "Chamarande",
	0x0C39: "Étréchy",
	0x0C40: "Étampes",
	0x0C41: "Versailles Château Rive Gauche",
	0x0C42: "Versailles Chantiers",
	0x0301: "Porte d'Ivry",
	0x0302: "Porte de Vincennes",
	0x0303: "Porte Dauphine",
	0x0304: "Porte de la Chapelle",
}

// StationName resolves a Navigo location code. Unknown codes come back as "Station #XXXX"
// with ok set to false.
func StationName(code uint16) (name string, ok bool) {
	if name, ok := navigoStations[code]; ok {
		return name, true
	}
	return fmt.Sprintf("Station #%04X", code), false
}
