// internal/content/builtin.go
package content

// Built-in dare packs shipped with the server. "classic" and "party" are free;
// "after-dark" is a premium pack and stays locked until the entitlement layer
// says otherwise.
const (
	PackClassic   = "classic"
	PackParty     = "party"
	PackAfterDark = "after-dark"
)

var builtinPacks = map[string][]string{
	PackClassic: {
		"Do your best impression of another player until someone guesses who it is",
		"Speak in an accent of your choice for the next two rounds",
		"Let the player to your left restyle your hair",
		"Call the fifth contact in your phone and sing them happy birthday",
		"Eat a spoonful of a condiment chosen by the group",
		"Do twenty push-ups right now",
		"Swap an item of clothing with the player across from you",
		"Let the group write a status update and post it from your account",
		"Talk without closing your lips for one full round",
		"Dance with no music for thirty seconds",
		"Show the group the last photo you took",
		"Balance a spoon on your nose until your next turn",
		"Attempt a magic trick with whatever is within arm's reach",
		"Narrate everything you do in a sports-commentator voice until your next turn",
	},
	PackParty: {
		"Invent a secret handshake with the player opposite you and perform it",
		"Serenade the player to your right",
		"Do your best runway walk across the room",
		"Let another player draw on your face with a washable marker",
		"Hold a plank until your next turn starts",
		"Tell a joke; if nobody laughs, tell another",
		"Recreate the last meme you saved, live",
		"Trade seats with whoever the group points at, carrying your chair",
		"Give a dramatic reading of your most recent text conversation",
		"Keep one hand on your head until someone notices and calls it out",
		"Do an interpretive dance of your morning routine",
		"Let the group pick a word you cannot say for three rounds",
	},
	PackAfterDark: {
		"Reveal the most embarrassing thing in your camera roll",
		"Tell the group about your worst date ever",
		"Let the player to your left read your last five search queries aloud",
		"Share your most unpopular opinion and defend it for one minute",
		"Admit the last white lie you told someone in this room",
		"Show the group your screen time report",
		"Describe your most irrational fear in vivid detail",
		"Reveal the nickname your family uses for you",
	},
}
