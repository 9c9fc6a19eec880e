package specialist

import "nutria-assistant-be/pkg/agent/prompt"

var dataShots = []prompt.Shot{
	{
		User:      "Quais farinhas eu tenho cadastradas?",
		Assistant: `{"tool_call": {"name": "ingredient_find", "arguments": {"category": "farinhas", "limit": 20}}}`,
	},
	{
		User:      "RESULTADO DA FERRAMENTA (ingredient_find):\n{\"count\":1,\"items\":[{\"id\":3,\"name\":\"Farinha de trigo\",\"category\":\"farinhas\"}]}",
		Assistant: `{"domain": "data", "intent": "listar farinhas", "answer": "Você tem 1 farinha cadastrada: Farinha de trigo.", "recommendation": "Cadastre as demais farinhas que usa para montar tabelas completas.", "followup": "", "clarifying_question": ""}`,
	},
}

var engineeringShots = []prompt.Shot{
	{
		User:      "O que é a lupa frontal?",
		Assistant: `{"domain": "engineering", "intent": "conceito de rotulagem frontal", "answer": "A lupa é o símbolo de rotulagem nutricional frontal que indica alto teor de açúcares adicionados, gorduras saturadas ou sódio, conforme a RDC 429/2020 e a IN 75/2020.", "recommendation": "Confira os limites da IN 75/2020 para a categoria do seu produto.", "followup": "Quer que eu verifique uma tabela específica?", "clarifying_question": ""}`,
	},
}

var appShots = []prompt.Shot{
	{
		User:      "Como exporto uma tabela?",
		Assistant: `{"tool_call": {"name": "search_flow", "arguments": {}}}`,
	},
}
