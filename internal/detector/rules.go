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
package detector

import (
	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/entity"
)

const emailRunes = `A-Za-z0-9!#$%&'*+/=?^_` + "`" + `{|}~.-`

// phoneWithExtension is tried before the other contact shapes; it is the most specific.
var phoneWithExtension = []pattern{
	bounded(`(?:\+?\d{1,4}[\s-]?)?\(?\d{1,4}\)?[\s-]?\d{2,4}[\s-]?\d{2,4}[\s-]?\d{2,4}(?:\s*,\s*(?:доб\.|#?ext\.|внутренний номер)\s*\d{1,5})?`, entity.Contact),
}

var contactPatterns = []pattern{
	unbounded(`[A-Za-z0-9._%+-]*@[A-Za-z0-9.-]*\.[A-Za-z]{2,7}`, entity.Contact),
	unbounded(`[А-Яа-яЁё]*@[`+wordRunes+`]+`, entity.Contact),
	unbounded(`8-\d{3}-\d{3}-\d{2}-\d{2}\.?`, entity.Contact),
	newPattern(`(?:\+7|8)?\(?\d{3,4}\)?[\s-]?\d{2,3}[\s-]?\d{2}[\s-]?\d{2}`, entity.Contact, nonDigitBefore, noBoundary),
	unbounded(`[А-Яа-яЁё`+emailRunes+`]+@[`+emailRunes+`]+`, entity.Contact),
	bounded(`(?:\+?\d{1,4}[\s-]?)?\(?\d{1,4}\)?[\s-]?\d{2,4}[\s-]?\d{2,4}[\s-]?\d{2,4}`, entity.Contact),
}

const (
	ruMonths = `января|февраля|марта|апреля|мая|июня|июля|августа|сентября|октября|ноября|декабря`
	ruMonthsNominative = `январь|февраль|март|апрель|май|июнь|июль|август|сентябрь|октябрь|ноябрь|декабрь|` +
		`январе|феврале|марте|апреле|мае|июне|июле|августе|сентябре|октябре|ноябре|декабре`
	enMonths = `January|February|March|April|May|June|July|August|September|October|November|December|` +
		`Jan|Feb|Mar|Apr|Jun|Jul|Aug|Sept|Sep|Oct|Nov|Dec`
	yearSuffix = `(?:\s*г(?:ода|оду|\.)?)?`
)

var datePatterns = []pattern{
	bounded(`\d{1,2}[./]\d{1,2}[./](?:\d{4}|\d{2})`, entity.Date),
	bounded(`\d{4}-\d{2}-\d{2}`, entity.Date),
	bounded(`(?i)\d{1,2}\s+(?:`+ruMonths+`)(?:\s+\d{4}`+yearSuffix+`)?`, entity.Date),
	bounded(`(?i)(?:`+ruMonthsNominative+`)\s+\d{4}`+yearSuffix, entity.Date),
	bounded(`\d{4}\s*г(?:ода|оду|\.)`, entity.Date),
	bounded(`(?i)(?:`+enMonths+`)\.?\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4}`, entity.Date),
	bounded(`(?i)\d{1,2}(?:st|nd|rd|th)?\s+(?:`+enMonths+`)\.?,?\s+\d{4}`, entity.Date),
}

// DefaultLocations is the built-in city and region gazetteer.
var DefaultLocations = []string{
	"Москва", "Воронеж", "Грозный", "Санкт-Петербург", "С. Петербург", "СПб",
	"Новосибирск", "Новосиб", "Краснодар", "Казань", "Екатеринбург", "Самара",
	"Челябинск", "Омск", "Ростов-на-Дону", "Ростов на Дону", "Ростов", "Уфа",
	"Красноярск", "Пермь", "Волгоград", "Чебоксары", "Ростовская", "Томская",
	"Нижегородская", "Воронежская", "Саратовская", "Омская", "Красноярская",
	"Иркутская", "Новосибирская",
}

var regionPatterns = []pattern{
	bounded(`[`+wordRunes+`]+(?:ого|ому|ым|ом|ая|ой|ую|ий|ый)\s+кра(?:[еёюяй]|ем)`, entity.Location),
	bounded(`[`+wordRunes+`]+(?:ой|ая|ую)\s+област(?:[иь]|ью)`, entity.Location),
}

var orgPatterns = []pattern{
	newPattern(`(?:ООО|ОАО|ЗАО|ПАО|АО|НКО|ФГУП|ГУП|МУП|ИП)\s*[«"][^»"\n]{1,80}[»"]`, entity.Organization, wordBoundary, noBoundary),
	bounded(`[A-Z][\p{L}&.-]*(?:\s+[A-Z][\p{L}&.-]*){0,3},?\s+(?:LLC|Inc\.?|Ltd\.?|GmbH|Corp\.?|LLP|PLC)`, entity.Organization),
}

var sensitivePatterns = []pattern{
	bounded(`\d{4}[-\s/]?\d{6}`, entity.SensitiveNumber),
	bounded(`(?:[a-zA-Z]*\d{4,}[a-zA-Z]*)+`, entity.SensitiveNumber),
}

var namePatterns = []pattern{
	bounded(`\(?[А-ЯЁ][а-яё]{2,}\s[А-ЯЁ]\.?[А-ЯЁ]?\.?\)?|`+
		`[А-ЯЁ][а-яё]+\s[А-ЯЁ]{2,}|`+
		`[А-ЯЁ]{2,}\s[А-ЯЁ][а-яё]+\s[А-ЯЁ][а-яё]+|`+
		`[А-ЯЁ][а-яё]+\s[А-ЯЁ][а-яё]+|`+
		`[А-ЯЁ]\.[А-ЯЁ]\.\s?[А-ЯЁ][а-яё]+|`+
		`[А-ЯЁ]\.\s?[А-ЯЁ][а-яё]+|`+
		`\([А-ЯЁ][а-яё]{2,}\s[А-ЯЁ][а-яё]{2,}\)|`+
		`\([А-ЯЁ][а-яё]+\s[А-ЯЁ]{2}\)|`+
		`\([А-ЯЁ][а-яё]+\s[А-ЯЁ]\)|`+
		`\([А-ЯЁ][а-яё]+\s[А-ЯЁ]\.[А-ЯЁ]\.\)`, entity.Person),
	bounded(`[A-Z][A-Z]+\s[A-Z][a-z]+|`+
		`[A-Z][a-z]+\s[A-Z][A-Z]+-[A-Z][A-Z]+|`+
		`[A-Z][A-Z]+-[A-Z][A-Z]+\s[A-Z][a-z]+|`+
		`[A-Z][a-z]+-[A-Z][a-z]+\s[A-Z][a-z]+|`+
		`[A-Z][a-z]+\s[A-Z][A-Z]+|`+
		`[A-Z][a-z]+\s[A-Z][a-z]+|`+
		`[A-Z][a-z]+\s[A-Z]\.?(?:\s[A-Z][a-z]+)?|`+
		`[A-Z]\.\s?[A-Z][a-z]+|`+
		`[A-Z]\.[A-Z]\.\s?[A-Z][a-z]+|`+
		`[A-Z][A-Z]+\.[A-Z]|`+
		`[A-Z]\.[A-Z][A-Z]+|`+
		`[A-Z][a-z]+(?:\s[A-Z][a-z]+)?\s[A-Z]+`, entity.Person),
	unbounded(`\(\s*[А-ЯЁ][а-яё]+\s*\)|\(\s*[A-Z][a-z]+\s*\)`, entity.Person),
}

// DefaultFilterRoots are word roots that make a capitalised pair look like a
// name when it is a greeting, a title or an institution.
var DefaultFilterRoots = []string{
	"Уважаем", "Здравствуй", "Доброе", "Добрый", "Добрая", "Спасибо", "Пожалуйста",
	"Прошу", "Просим", "Согласно", "Договор", "Российск", "Федерац", "Республик",
	"Министерств", "Управлени", "Департамент", "Генеральн", "Директор", "Главн",
	"Понедельник", "Вторник", "Среда", "Четверг", "Пятниц", "Суббот", "Воскресень",
	"Dear", "Hello", "Regards", "Sincerely", "Thanks", "Thank", "Monday", "Tuesday",
	"Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}
