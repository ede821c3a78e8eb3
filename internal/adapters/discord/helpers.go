package discord

import "github.com/bwmarrin/discordgo"

func optStr(ic *discordgo.InteractionCreate, name string) (string, bool) {
	if o := findOpt(ic, name); o != nil && o.Type == discordgo.ApplicationCommandOptionString {
		return o.StringValue(), true
	}
	return "", false
}

func optInt(ic *discordgo.InteractionCreate, name string) (int, bool) {
	if o := findOpt(ic, name); o != nil && o.Type == discordgo.ApplicationCommandOptionInteger {
		return int(o.IntValue()), true
	}
	return 0, false
}

// optUserID: del option tipo User solo necesitamos el ID; UserValue(nil)
// devuelve el user parcial sin pegarle a la API.
func optUserID(ic *discordgo.InteractionCreate, name string) (string, bool) {
	if o := findOpt(ic, name); o != nil && o.Type == discordgo.ApplicationCommandOptionUser {
		if u := o.UserValue(nil); u != nil {
			return u.ID, true
		}
	}
	return "", false
}

func subcmdName(ic *discordgo.InteractionCreate) (string, bool) {
	if ic.Type != discordgo.InteractionApplicationCommand {
		return "", false
	}
	for _, o := range ic.ApplicationCommandData().Options {
		if o.Type == discordgo.ApplicationCommandOptionSubCommand {
			return o.Name, true
		}
	}
	return "", false
}

func findOpt(ic *discordgo.InteractionCreate, name string) *discordgo.ApplicationCommandInteractionDataOption {
	if ic.Type != discordgo.InteractionApplicationCommand {
		return nil
	}
	for _, o := range ic.ApplicationCommandData().Options {
		if o.Name == name {
			return o
		}
		// subcommand
		if o.Type == discordgo.ApplicationCommandOptionSubCommand {
			for _, so := range o.Options {
				if so.Name == name {
					return so
				}
			}
		}
	}
	return nil
}
