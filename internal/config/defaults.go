package config

const (
	defaultDataDir   = "assets/data"
	defaultHistoryDB = "~/.local/share/loregraph/history.db"
	defaultLogFormat = "console"
	defaultLogLevel  = "info"
	defaultKeepRuns  = 200
	dataDirEnv       = "LOREGRAPH_DATA_DIR"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			HistoryDB: defaultHistoryDB,
		},
		Collections: defaultCollections(),
		History: History{
			Enabled:  true,
			KeepRuns: defaultKeepRuns,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

func defaultCollections() Collections {
	return Collections{
		Characters:   "characters.json",
		Locations:    "locations.json",
		Dialogues:    "dialogues.json",
		Encyclopedia: "encyclopedia.json",
		Quizzes:      "quizzes.json",
	}
}

func defaultPairs() []Pair {
	return []Pair{
		{
			Collection:     CollectionCharacters,
			Field:          "relatedLocationIds",
			PeerCollection: CollectionLocations,
			PeerField:      "characterIds",
		},
		{
			Collection:     CollectionCharacters,
			Field:          "relatedCharacterIds",
			PeerCollection: CollectionCharacters,
			PeerField:      "relatedCharacterIds",
		},
	}
}

func defaultRequired() []string {
	return []string{
		"characters.relatedLocationIds",
		"characters.relatedCharacterIds",
		"locations.characterIds",
	}
}
