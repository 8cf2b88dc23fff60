package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	cmd, err := ParseCommand([]byte(`{"type":"dice.roll","kept":[true,false,true,false,false]}`))
	require.NoError(t, err)
	assert.Equal(t, CmdDiceRoll, cmd.Type)
	assert.Equal(t, [5]bool{true, false, true, false, false}, cmd.KeptMask())

	_, err = ParseCommand([]byte(`not json`))
	assert.Error(t, err)
}

func TestCommandValidate(t *testing.T) {
	long := make([]byte, MaxChatLength+1)
	for i := range long {
		long[i] = 'a'
	}

	tests := []struct {
		name string
		cmd  Command
		code ErrorCode // empty means valid
	}{
		{"start_game", Command{Type: CmdStartGame}, ""},
		{"ping", Command{Type: CmdPing}, ""},
		{"roll without mask", Command{Type: CmdDiceRoll}, ""},
		{"roll with short mask", Command{Type: CmdDiceRoll, Kept: []bool{true}}, CodeInvalidMessage},
		{"keep in range", Command{Type: CmdDiceKeep, Indices: []int{0, 4}}, ""},
		{"keep out of range", Command{Type: CmdDiceKeep, Indices: []int{5}}, CodeInvalidMessage},
		{"score valid category", Command{Type: CmdScore, Category: "chance"}, ""},
		{"score bad category", Command{Type: CmdScore, Category: "yahtzee"}, CodeInvalidMessage},
		{"chat", Command{Type: CmdChat, Content: "hello"}, ""},
		{"chat empty", Command{Type: CmdChat}, CodeInvalidMessage},
		{"chat too long", Command{Type: CmdChat, Content: string(long)}, CodeInvalidMessage},
		{"quick chat known key", Command{Type: CmdQuickChat, Key: "gg"}, ""},
		{"quick chat unknown key", Command{Type: CmdQuickChat, Key: "trash_talk"}, CodeInvalidMessage},
		{"reaction add", Command{Type: CmdReaction, MessageID: "m1", Emoji: "🎲", Action: "add"}, ""},
		{"reaction bad action", Command{Type: CmdReaction, MessageID: "m1", Emoji: "🎲", Action: "toggle"}, CodeInvalidMessage},
		{"predict", Command{Type: CmdPredict, TargetUserID: "u1", Category: "dicee"}, ""},
		{"predict without target", Command{Type: CmdPredict, Category: "dicee"}, CodeInvalidMessage},
		{"unknown type", Command{Type: "warp_dice"}, CodeUnknownCommand},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cmd.Validate()
			if tt.code == "" {
				assert.Nil(t, err)
			} else {
				require.NotNil(t, err)
				assert.Equal(t, tt.code, err.Code)
			}
		})
	}
}
