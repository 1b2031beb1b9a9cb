/*
 * Copyright 2025 Google LLC
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *    https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */
package pseudo

var (
	maleFirstNames = []string{
		"Александр", "Алексей", "Андрей", "Борис", "Вадим", "Виктор", "Владимир", "Георгий",
		"Дмитрий", "Евгений", "Игорь", "Кирилл", "Константин", "Максим", "Михаил", "Николай",
		"Олег", "Павел", "Роман", "Сергей", "Степан", "Тимофей", "Фёдор", "Юрий",
	}
	femaleFirstNames = []string{
		"Александра", "Алина", "Анастасия", "Анна", "Валентина", "Вера", "Дарья", "Евгения",
		"Екатерина", "Елена", "Ирина", "Ксения", "Лариса", "Мария", "Наталья", "Ольга",
		"Полина", "Светлана", "София", "Татьяна", "Ульяна", "Юлия",
	}
	// surnameStems take "ов"/"ин" style endings; female forms add "а".
	surnameStems = []string{
		"Белов", "Волков", "Воронцов", "Голубев", "Гусев", "Егоров", "Жуков", "Зайцев",
		"Ковалёв", "Козлов", "Комаров", "Лебедев", "Макаров", "Морозов", "Новиков", "Орлов",
		"Павлов", "Семёнов", "Смирнов", "Соколов", "Тихонов", "Фролов", "Ильин", "Никитин",
	}
	cities = []string{
		"Архангельск", "Барнаул", "Владимир", "Вологда", "Калуга", "Кемерово", "Кострома",
		"Курск", "Липецк", "Мурманск", "Орёл", "Псков", "Рязань", "Смоленск", "Тверь",
		"Тула", "Тюмень", "Ульяновск", "Хабаровск", "Ярославль",
	}
	companyForms = []string{"ООО", "АО", "ПАО", "ЗАО"}
	companyNames = []string{
		"Вектор", "Горизонт", "Звезда", "Импульс", "Квант", "Меридиан", "Орбита", "Прогресс",
		"Радуга", "Сигма", "Спектр", "Стимул", "Форум", "Эталон", "Альянс", "Магистраль",
	}
	loginWords = []string{
		"alpha", "amber", "birch", "cedar", "delta", "ember", "falcon", "garnet", "harbor",
		"indigo", "juniper", "kestrel", "lumen", "maple", "nova", "onyx", "pixel", "quartz",
		"raven", "sierra", "tango", "umber", "violet", "willow",
	}
	emailDomains = []string{"example.com", "example.net", "example.org", "mail.test", "inbox.test"}
	hostTLDs     = []string{"com", "net", "org", "ru", "io", "info"}
	genericWords = []string{
		"аргумент", "берег", "вариант", "горизонт", "дорога", "задача", "интерес", "картина",
		"ландшафт", "материал", "направление", "образ", "пример", "работа", "система", "текст",
		"условие", "фактор", "характер", "явление",
	}
)
