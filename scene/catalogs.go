package scene

// Scripted line catalogs. These are the engine's only built-in content: short
// ambient happenings and stage-direction fallbacks used when generation is
// skipped or rejected. The setting is a seaside park bench; the lines are
// Czech, like everything else the repetition and addressing layers see.

// ambientEvents feed low-intensity stimuli into a quiet scene.
var ambientEvents = []string{
	"Kolem proletěl racek.",
	"Od moře zafoukal vítr.",
	"Někde v dálce zahoukal parník.",
	"Na lavičku dopadl list.",
	"Přeběhla kolem kočka.",
	"V dálce se ozval smích.",
	"Nad mořem zakroužil albatros.",
	"Vlna se silněji rozbila o břeh.",
	"Slunce na chvíli vykouklo z mraků.",
	"Kolem prošel člověk se psem.",
}

// revivalEvents are stronger stimuli used to shake a dying scene awake.
var revivalEvents = []string{
	"Silnější vlna vystříkla až na břeh.",
	"Náhle se ozval výkřik rackého hejna.",
	"Kolem profrčel cyklista a málem srazil koš.",
	"Začalo drobně mrholit.",
	"Na moři se objevila plachetnice.",
}

// idleActions substitute for generation when an agent has the urge to act
// but lacks the social permission to speak.
var idleActions = []string{
	"Pozoruje okolí.",
	"Zamyšleně se dívá na moře.",
	"Pousměje se.",
}

// fillerActions substitute for generation when an agent has held the floor
// too many turns in a row.
var fillerActions = []string{
	"Chvíli mlčí a pozoruje okolí.",
	"Zamyšleně se dívá na moře.",
	"Nechává prostor druhému.",
}

// downgradeActions replace speech that repetition control refused to commit.
var downgradeActions = []string{
	"Podívá se na moře.",
	"Zamyšleně přikývne.",
	"Pozoruje okolí.",
	"Pousměje se.",
}

// assistedOptions are the soft prompts offered once a scene is dying. They
// nudge, never command; the generator stays free to produce nothing.
var assistedOptions = []AssistedOption{
	{
		Label:       "Nové téma",
		Instruction: "Napadá tě něco, co bys mohl/a zmínit - možná něco co vidíš, slyšíš, nebo o čem přemýšlíš. Ale klidně můžeš i mlčet.",
	},
	{
		Label:       "Osobní otázka",
		Instruction: "Možná by ses mohl/a na něco zeptat - ale jen pokud tě to opravdu zajímá. Nemusíš.",
	},
	{
		Label:       "Myšlenka",
		Instruction: "Přemýšlíš o něčem, co by stálo za zmínku. Nebo možná jen pozoruješ okolí.",
	},
}
