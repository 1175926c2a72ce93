package models

// Topics is the closed set of topic slugs a post may carry. Earlier schema
// revisions kept these in a sections table; the enum replaced it.
var Topics = []string{
	"basketball",
	"music",
	"japanese-studies",
	"finance",
	"general-learning",
}

// TopicNames maps a topic slug to its display name.
var TopicNames = map[string]string{
	"basketball":       "Basketball",
	"music":            "Music",
	"japanese-studies": "Japanese Studies",
	"finance":          "Finance",
	"general-learning": "General Learning",
}

// ValidTopic reports whether the given slug belongs to the topic set.
func ValidTopic(topic string) bool {
	_, ok := TopicNames[topic]
	return ok
}
