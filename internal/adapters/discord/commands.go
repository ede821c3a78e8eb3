package discord

import "github.com/bwmarrin/discordgo"

// Commands: definición de los slash commands que registramos en el
// guild. El conjunto es cerrado; el engine rechaza cualquier otro.
var Commands = []*discordgo.ApplicationCommand{
	{
		Name:        "start",
		Description: "Registrarte en el chat",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionString, Name: "nick", Description: "Tu apodo"},
		},
	},
	{
		Name:        "nick",
		Description: "Cambiar tu apodo",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionString, Name: "nick", Description: "Nuevo apodo", Required: true},
		},
	},
	{
		Name:        "poll",
		Description: "Encuestas del chat",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type: discordgo.ApplicationCommandOptionSubCommand, Name: "new", Description: "Crear encuesta",
				Options: []*discordgo.ApplicationCommandOption{
					{Type: discordgo.ApplicationCommandOptionString, Name: "texto", Description: "pregunta | opción | opción", Required: true},
				},
			},
			{
				Type: discordgo.ApplicationCommandOptionSubCommand, Name: "vote", Description: "Votar",
				Options: []*discordgo.ApplicationCommandOption{
					{Type: discordgo.ApplicationCommandOptionInteger, Name: "id", Description: "ID de la encuesta", Required: true},
					{Type: discordgo.ApplicationCommandOptionInteger, Name: "opcion", Description: "Número de opción", Required: true},
				},
			},
			{
				Type: discordgo.ApplicationCommandOptionSubCommand, Name: "close", Description: "Cerrar encuesta",
				Options: []*discordgo.ApplicationCommandOption{
					{Type: discordgo.ApplicationCommandOptionInteger, Name: "id", Description: "ID de la encuesta", Required: true},
				},
			},
			{
				Type: discordgo.ApplicationCommandOptionSubCommand, Name: "show", Description: "Ver encuesta",
				Options: []*discordgo.ApplicationCommandOption{
					{Type: discordgo.ApplicationCommandOptionInteger, Name: "id", Description: "ID de la encuesta", Required: true},
				},
			},
		},
	},
	{Name: "rules", Description: "Reglas del chat"},
	{Name: "about", Description: "Sobre el bot"},
	{Name: "ping", Description: "Pong"},
	{
		Name:        "mute",
		Description: "Mutear a un usuario (moderadores)",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionUser, Name: "usuario", Description: "A quién", Required: true},
			{Type: discordgo.ApplicationCommandOptionInteger, Name: "minutos", Description: "Duración en minutos"},
		},
	},
	{
		Name:        "unmute",
		Description: "Quitar el mute (moderadores)",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionUser, Name: "usuario", Description: "A quién", Required: true},
		},
	},
	{
		Name:        "vote_mute",
		Description: "Votar para mutear a un usuario",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionUser, Name: "usuario", Description: "A quién", Required: true},
		},
	},
	{
		Name:        "ban",
		Description: "Banear a un usuario (admins)",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionUser, Name: "usuario", Description: "A quién", Required: true},
			{Type: discordgo.ApplicationCommandOptionString, Name: "motivo", Description: "Motivo del ban"},
		},
	},
	{
		Name:        "unban",
		Description: "Quitar el ban (admins)",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionUser, Name: "usuario", Description: "A quién", Required: true},
		},
	},
	{
		Name:        "set_role",
		Description: "Asignar rol (admins)",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionUser, Name: "usuario", Description: "A quién", Required: true},
			{
				Type: discordgo.ApplicationCommandOptionString, Name: "rol", Description: "Rol nuevo", Required: true,
				Choices: []*discordgo.ApplicationCommandOptionChoice{
					{Name: "admin", Value: "admin"},
					{Name: "moderator", Value: "moderator"},
					{Name: "user", Value: "user"},
				},
			},
		},
	},
	{
		Name:        "view_logs",
		Description: "Ver el historial de moderación (admins)",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionUser, Name: "usuario", Description: "De quién", Required: true},
			{Type: discordgo.ApplicationCommandOptionInteger, Name: "limite", Description: "Cuántas entradas (1..50)"},
		},
	},
	{
		Name:        "set_mute_duration",
		Description: "Duración default del mute por votación (admins)",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionInteger, Name: "minutos", Description: "Minutos", Required: true},
		},
	},
}
